package training

import (
	"errors"
	"fmt"
)

// ErrDataInsufficient matches every *DataInsufficientError.
var ErrDataInsufficient = errors.New("insufficient training data")

// DataInsufficientError reports a training gate that was not met. Nothing
// has been trained or written when it is returned.
type DataInsufficientError struct {
	Have int
	Need int
}

func (e *DataInsufficientError) Error() string {
	return fmt.Sprintf("not enough data to train: have %d, need at least %d", e.Have, e.Need)
}

func (e *DataInsufficientError) Is(target error) bool {
	return target == ErrDataInsufficient
}
