package app

import (
	"errors"
	"fmt"

	"github.com/bodytwin/platform/pkg/common/config"
	"github.com/bodytwin/platform/pkg/common/database"
	"github.com/bodytwin/platform/pkg/common/kafka"
	"github.com/bodytwin/platform/pkg/common/logger"
	"github.com/bodytwin/platform/pkg/nutrition"
	"github.com/bodytwin/platform/pkg/registry"
	"github.com/bodytwin/platform/pkg/serving"
	"github.com/bodytwin/platform/pkg/tracker"
	"github.com/bodytwin/platform/pkg/training"
	"github.com/bodytwin/platform/pkg/twin"
	"gorm.io/gorm"
)

const trackerSource = "bodytwin-training"

// Resources are the external connections behind a Platform. Any of the
// repositories may be nil when Postgres is unreachable.
type Resources struct {
	DB          *gorm.DB
	Twins       *twin.Repository
	Nutrition   *nutrition.Repository
	Runs        *training.Repository
	Predictions *serving.Repository

	producer  *kafka.Producer
	usesRedis bool
}

// Connect opens Postgres, migrates the tables and builds the optional
// Redis lock and Kafka tracker named in cfg. Postgres being down is not
// fatal: the food family and the registries work without it.
func Connect(cfg *config.Config) (*Resources, Deps, error) {
	res, deps, err := ConnectLocks(cfg)
	if err != nil {
		return nil, Deps{}, err
	}
	trackers := tracker.Multi{tracker.NewLogTracker()}

	db, err := database.GetPostgres(cfg)
	if err != nil {
		logger.Log.WithError(err).Warn("PostgreSQL unavailable; alert training, meal logging and run history disabled")
	} else {
		res.DB = db
		res.Twins = twin.NewRepository(db)
		res.Nutrition = nutrition.NewRepository(db)
		res.Runs = training.NewRepository(db)
		res.Predictions = serving.NewRepository(db)
		if err := migrate(res); err != nil {
			res.Close()
			return nil, Deps{}, err
		}
		deps.Twins = res.Twins
		deps.Journal = training.NewRepositoryJournal(res.Runs)
	}

	if cfg.ExperimentTopic != "" {
		res.producer = kafka.NewProducer(cfg.KafkaBrokers, cfg.ExperimentTopic)
		trackers = append(trackers, tracker.NewKafkaTracker(res.producer, trackerSource))
	}
	deps.Tracker = trackers

	return res, deps, nil
}

// ConnectLocks builds only the registry lock, for callers such as modelctl
// that write registries next to a running service but need neither
// Postgres nor Kafka.
func ConnectLocks(cfg *config.Config) (*Resources, Deps, error) {
	locker, err := NewLocker(cfg)
	if err != nil {
		return nil, Deps{}, err
	}
	return &Resources{usesRedis: usesRedis(cfg)}, Deps{Locker: locker}, nil
}

// NewLocker builds the registry lock named by REGISTRY_LOCK_BACKEND. The
// local backend only serialises writers inside this process.
func NewLocker(cfg *config.Config) (registry.Locker, error) {
	switch cfg.RegistryLockBackend {
	case "redis":
		return registry.NewRedisLocker(database.GetRedis(cfg), cfg.RegistryLockTTL), nil
	case "", "local":
		return registry.DefaultLocalLocker, nil
	}
	return nil, fmt.Errorf("unknown REGISTRY_LOCK_BACKEND %q", cfg.RegistryLockBackend)
}

func usesRedis(cfg *config.Config) bool { return cfg.RegistryLockBackend == "redis" }

func migrate(res *Resources) error {
	for _, m := range []interface{ AutoMigrate() error }{res.Twins, res.Nutrition, res.Runs, res.Predictions} {
		if err := m.AutoMigrate(); err != nil {
			return err
		}
	}
	return nil
}

// Build is Connect followed by New.
func Build(cfg *config.Config) (*Platform, *Resources, error) {
	res, deps, err := Connect(cfg)
	if err != nil {
		return nil, nil, err
	}
	p, err := New(cfg, deps)
	if err != nil {
		res.Close()
		return nil, nil, err
	}
	return p, res, nil
}

// Close releases every connection opened by Connect.
func (r *Resources) Close() error {
	var errs []error
	if r.producer != nil {
		errs = append(errs, r.producer.Close())
	}
	if r.usesRedis {
		errs = append(errs, database.CloseRedis())
	}
	if r.DB != nil {
		errs = append(errs, database.ClosePostgres())
	}
	return errors.Join(errs...)
}
