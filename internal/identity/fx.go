package identity

import (
	"github.com/smallbiznis/idadmin/internal/identity/repository"
	"github.com/smallbiznis/idadmin/internal/identity/service"
	"go.uber.org/fx"
)

var Module = fx.Module("identity.service",
	fx.Provide(repository.Provide),
	fx.Provide(service.NewUserStore),
	fx.Provide(service.NewRoleStore),
)
