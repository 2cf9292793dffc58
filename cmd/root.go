/*
Copyright © 2025 Valentyn Solomko <valentyn.solomko@gmail.com>

Licensed under the Apache License, Version 2.0 (the "License");
you may not use this file except in compliance with the License.
You may obtain a copy of the License at

	http://www.apache.org/licenses/LICENSE-2.0

Unless required by applicable law or agreed to in writing, software
distributed under the License is distributed on an "AS IS" BASIS,
WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
See the License for the specific language governing permissions and
limitations under the License.
*/
package cmd

import (
	"os"

	"github.com/spf13/cobra"
	"github.com/spf13/viper"

	"github.com/valpere/pdftran/internal/config"
)

var version = "0.3.0"

var (
	cfgFile string
	v       = viper.New()
)

var rootCmd = &cobra.Command{
	Use:   "pdftran",
	Short: "Resumable PDF book translator",
	Long: `A CLI application that splits a PDF book into segments, extracts their text
for review, and translates each segment with an LLM.

Every stage writes one file per segment and skips files that already exist,
so an interrupted run can simply be restarted and hand-corrected text is
never overwritten.

Use "pdftran run --help" for pipeline options.`,
	Version: version,
	PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
		return config.Setup(v, cfgFile)
	},
	SilenceUsage: true,
}

func Execute() {
	if err := rootCmd.Execute(); err != nil {
		os.Exit(1)
	}
}

func init() {
	rootCmd.PersistentFlags().StringVar(&cfgFile, "config", "", "Config file (default ./pdftran.yaml or $HOME/.pdftran/pdftran.yaml)")
}
