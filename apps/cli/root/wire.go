package root

import (
	"github.com/zenGate-Global/inspection-scheduler/apps/cli/cmd/account"
	"github.com/zenGate-Global/inspection-scheduler/apps/cli/cmd/auth"
	"github.com/zenGate-Global/inspection-scheduler/apps/cli/cmd/bootstrap"
)

func init() {
	Root().AddCommand(auth.Command())
	Root().AddCommand(bootstrap.Command())
	Root().AddCommand(account.Command())
}
