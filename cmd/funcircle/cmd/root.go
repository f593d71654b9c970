package cmd

import (
	"log"

	"github.com/spf13/cobra"

	"github.com/tradepost/funcircle/pkg/conf"
)

var (
	file   string
	config *Conf

	rootCmd = &cobra.Command{
		Use:   "funcircle",
		Short: "Fun Circle social graph and messaging",
		Long:  "",
	}
)

type Conf struct {
	API      conf.AddrConf     `mapstructure:"api"`
	Settings conf.APIConf      `mapstructure:"settings"`
	Redis    conf.RedisConf    `mapstructure:"redis"`
	DB       conf.PostgresConf `mapstructure:"db"`
	Elastic  conf.ElasticConf  `mapstructure:"elastic"`
	Data     conf.DataConf     `mapstructure:"data"`
	Mixpanel struct {
		Token string `mapstructure:"token"`
		URL   string `mapstructure:"url"`
	} `mapstructure:"mixpanel"`
	Notifications struct {
		Workers int `mapstructure:"workers"`
	} `mapstructure:"notifications"`
}

func init() {
	cobra.OnInitialize(initConfig)
	rootCmd.PersistentFlags().StringVarP(&file, "config", "c", "config.toml", "config file")

	rootCmd.AddCommand(server)
	rootCmd.AddCommand(notificationsCmd)
	rootCmd.AddCommand(trackingCmd)
	rootCmd.AddCommand(indexCmd)
}

// Execute executes the root command.
func Execute() error {
	return rootCmd.Execute()
}

func initConfig() {
	err := conf.LoadEnv(".env")
	if err != nil {
		log.Fatalf("failed to load env: %s", err)
	}

	config = &Conf{}
	err = conf.Load(file, config)
	if err != nil {
		log.Fatalf("failed to load config: %s", err)
	}
}
