package main

import (
	"log"
	"os"
	"os/signal"
	"strings"
	"syscall"

	"github.com/loomworks/loom/agent"
	"github.com/loomworks/loom/config"
	"github.com/spf13/cobra"
	"github.com/spf13/viper"
)

type cli struct {
	cfg config.Config
}

func setupFlags(cmd *cobra.Command) error {
	cmd.Flags().String("config-file", "", "Path to config file.")
	cmd.Flags().String("redis-addr", "localhost:6379", "comma separated list of redis host:port")
	cmd.Flags().String("namespace", "loom", "namespace used in storage")
	cmd.Flags().Int("http-port", 8080, "http port for rest endpoints")
	cmd.Flags().String("storage-impl", "redis", "implementation of underline storage")
	cmd.Flags().Int("partitions", 71, "number of work queue partitions")
	cmd.Flags().Int("batch-size", 100, "activation poll batch size")
	cmd.Flags().Int("poll-interval-ms", 100, "queue poll interval in milliseconds")
	cmd.Flags().Int("executor-capacity", 512, "activation executor capacity")
	cmd.Flags().Int("action-timeout-ms", 15000, "upper bound on http action timeout")
	cmd.Flags().String("analytics-file", "", "file to record activity outcomes, empty disables it")
	return viper.BindPFlags(cmd.Flags())
}

func (c *cli) setupConfig(cmd *cobra.Command, args []string) error {
	configFile, err := cmd.Flags().GetString("config-file")
	if err != nil {
		return err
	}
	viper.SetConfigFile(configFile)

	if err = viper.ReadInConfig(); err != nil {
		// it's ok if config file doesn't exist
		if _, ok := err.(viper.ConfigFileNotFoundError); !ok {
			return err
		}
	}

	c.cfg.RedisConfig.Addrs = strings.Split(viper.GetString("redis-addr"), ",")
	c.cfg.RedisConfig.Namespace = viper.GetString("namespace")
	c.cfg.HttpPort = viper.GetInt("http-port")
	c.cfg.StorageType = config.StorageType(viper.GetString("storage-impl"))
	c.cfg.PartitionCount = viper.GetInt("partitions")
	c.cfg.ActivityBatchSize = viper.GetInt("batch-size")
	c.cfg.PollIntervalMillis = viper.GetInt("poll-interval-ms")
	c.cfg.ActionExecutorCapacity = viper.GetInt("executor-capacity")
	c.cfg.ActionTimeoutMillis = viper.GetInt("action-timeout-ms")
	c.cfg.AnalyticsFile = viper.GetString("analytics-file")
	return nil
}

func (c *cli) run(cmd *cobra.Command, args []string) error {
	a, err := agent.New(c.cfg)
	if err != nil {
		panic(err)
	}
	if err := a.Start(); err != nil {
		panic(err)
	}
	sigc := make(chan os.Signal, 1)
	signal.Notify(sigc, syscall.SIGINT, syscall.SIGTERM)
	<-sigc
	return a.Shutdown()
}

func main() {
	cli := &cli{}

	cmd := &cobra.Command{
		Use:     "loom",
		PreRunE: cli.setupConfig,
		RunE:    cli.run,
	}

	if err := setupFlags(cmd); err != nil {
		log.Fatal(err)
	}

	if err := cmd.Execute(); err != nil {
		log.Fatal(err)
	}
}
