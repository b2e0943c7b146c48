package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"

	"github.com/arthur-debert/qlbundle/cmd/qlbundle"
	"github.com/arthur-debert/qlbundle/pkg/errors"
	"github.com/arthur-debert/qlbundle/pkg/output/styles"
	"github.com/rs/zerolog/log"
)

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt)
	defer stop()

	rootCmd := qlbundle.NewRootCmd()
	if err := rootCmd.ExecuteContext(ctx); err != nil {
		errorStyle := styles.GetStyle("Error")
		fmt.Fprintln(os.Stderr, errorStyle.Render(fmt.Sprintf("Error: %v", err)))

		log.Debug().
			Str("code", string(errors.GetErrorCode(err))).
			Interface("details", errors.GetErrorDetails(err)).
			Err(err).
			Msg("Command failed")

		stop()
		os.Exit(1)
	}
}
