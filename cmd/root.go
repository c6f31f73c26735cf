package cmd

import "github.com/spf13/cobra"

func Execute() error {
	return newRootCmd().Execute()
}

func newRootCmd() *cobra.Command {
	rootCmd := &cobra.Command{
		Use:           "tpr",
		Short:         "Token pool router (tpr): tier-aware account selection",
		Long:          "tpr (token pool router) keeps a pool of upstream AI accounts with their tier, quota, health and block state, and picks the best account for each model request.",
		SilenceUsage:  true,
		SilenceErrors: false,
	}

	app, err := wireApp()
	if err != nil {
		rootCmd.RunE = func(_ *cobra.Command, _ []string) error {
			return err
		}
		return rootCmd
	}

	rootCmd.AddCommand(
		newVersionCmd(),
		newAccountCmd(app),
		newClassifyCmd(app),
		newRankCmd(app),
		newSelectCmd(app),
		newPoolCmd(app),
	)

	return rootCmd
}
