package cmd

import (
	"github.com/ostafen/flashpart/internal/env"
	"github.com/spf13/cobra"
)

const AppName = env.AppName

func NewRootCommand() *cobra.Command {
	rootCmd := &cobra.Command{
		Use:   AppName,
		Short: AppName + " - flash partition access tool",
	}

	pf := rootCmd.PersistentFlags()
	pf.String("config", "", "path of the configuration file (default ./flashpart.yaml)")
	pf.StringP("image", "i", "", "path of the flash image file (default \"flash.img\")")
	pf.String("log-level", "", "log level (DEBUG, INFO, WARN, ERROR)")
	pf.String("log-file", "", "append logs to the specified file instead of stderr")
	pf.Bool("strict-lock", false, "halt on re-entrant flash access instead of masking interrupts")

	rootCmd.AddCommand(
		DefineInitCommand(),
		DefineTableCommand(),
		DefineReadCommand(),
		DefineWriteCommand(),
		DefineEraseCommand(),
		DefineMountCommand(),
		DefineVerifyCommand(),
	)
	return rootCmd
}

func Execute() error {
	return NewRootCommand().Execute()
}
