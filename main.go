// SPDX-License-Identifier: AGPL-3.0-or-later
// wivrnd - WiVRn session and transport daemon

package main

import (
	"context"
	"fmt"
	"os"

	"github.com/USA-RedDragon/configulator"

	"github.com/wivrn-project/wivrnd/cmd/wivrnd"
	"github.com/wivrn-project/wivrnd/internal/config"
	"github.com/wivrn-project/wivrnd/internal/sdk"
)

func main() {
	c := configulator.New[config.Config]()
	root := wivrnd.NewCommand(sdk.Version, sdk.GitCommit)

	ctx := configulator.NewContext(context.Background(), c)
	if err := root.ExecuteContext(ctx); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(wivrnd.ExitCode(err))
	}
}
