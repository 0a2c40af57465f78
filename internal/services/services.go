package services

import (
	"github.com/evo-edit/evo/internal/config"
	"github.com/evo-edit/evo/internal/db"
	"github.com/evo-edit/evo/internal/services/account"
	"github.com/evo-edit/evo/internal/services/project"
)

type Services struct {
	Account *account.AccountService
	Project *project.ProjectService
}

func NewServices(conf *config.Config) *Services {
	dbconn := db.NewConn(conf)

	return &Services{
		Account: account.NewAccountService(account.NewAccountRepo(dbconn)),
		Project: project.NewProjectService(project.NewProjectRepo(dbconn)),
	}
}
