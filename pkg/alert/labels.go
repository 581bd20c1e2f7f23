package alert

import (
	"errors"
	"fmt"
)

var ErrUnknownClass = errors.New("unknown alert class")

var labels = [...]string{
	0: "no_consult",
	1: "routine_consult",
	2: "specialist_consult",
	3: "emergency",
}

// Label maps a predicted class id to its consult recommendation.
func Label(classID int) (string, error) {
	if classID < 0 || classID >= len(labels) {
		return "", fmt.Errorf("%w: %d", ErrUnknownClass, classID)
	}
	return labels[classID], nil
}
