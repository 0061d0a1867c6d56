package main

import (
	"errors"
	"fmt"
	"os"

	"github.com/okian/tripsim/internal/config"
	"github.com/okian/tripsim/internal/domain/model"
)

// Exit codes for different failure modes.
const (
	ExitSuccess = 0
	ExitConfig  = 1 // invalid configuration, model file or input table
	ExitError   = 2 // runtime failure
)

func main() {
	if err := execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(exitCode(err))
	}
}

func exitCode(err error) int {
	switch {
	case err == nil:
		return ExitSuccess
	case errors.Is(err, model.ErrConfiguration),
		errors.Is(err, config.ErrInvalidConfig),
		errors.Is(err, config.ErrLoadConfig):
		return ExitConfig
	default:
		return ExitError
	}
}
