package configports

import (
	"context"

	configdomain "kilometers.ai/pluginrepo/internal/core/domain/config"
)

type Loader interface {
	Load(ctx context.Context) (configdomain.Snapshot, error)
	Name() string
}

type Validator interface {
	Validate(settings configdomain.Settings) error
}
