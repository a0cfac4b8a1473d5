package useradmin

import (
	"github.com/smallbiznis/idadmin/internal/useradmin/service"
	"go.uber.org/fx"
)

var Module = fx.Module("useradmin.service",
	fx.Provide(service.New),
)
