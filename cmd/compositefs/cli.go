package main

import (
	"io"
	"os"

	"github.com/absfs/compositefs"
	"github.com/pkg/errors"
	"github.com/sirupsen/logrus"
	"github.com/spf13/cobra"
)

// configEnv names the config file when --config is not given
const configEnv = "COMPOSITEFS_CONFIG"

// cli operates on the filesystem described by a YAML config
type cli struct {
	rootCmd *cobra.Command

	configPath string
	logLevel   string
	out        io.Writer
	log        *logrus.Logger
	fsys       compositefs.Filesystem
}

func newCLI(out io.Writer) *cli {
	c := &cli{out: out, log: logrus.New()}
	c.log.SetOutput(os.Stderr)

	c.rootCmd = &cobra.Command{
		Use:           "compositefs",
		Short:         "compositefs operates on a routed and layered virtual filesystem",
		SilenceUsage:  true,
		SilenceErrors: true,
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
			level, err := logrus.ParseLevel(c.logLevel)
			if err != nil {
				return err
			}
			c.log.SetLevel(level)
			return nil
		},
	}
	c.rootCmd.SetOut(out)
	c.rootCmd.PersistentFlags().StringVarP(&c.configPath, "config", "c", "", "filesystem config file (default $"+configEnv+")")
	c.rootCmd.PersistentFlags().StringVar(&c.logLevel, "log-level", "warn", "log level (debug, info, warn, error)")

	c.addCmd(&lsCmd{})
	c.addCmd(&walkCmd{})
	c.addCmd(&catCmd{})
	c.addCmd(&putCmd{})
	c.addCmd(&getCmd{})
	c.addCmd(&rmCmd{})
	c.addCmd(&mkdirCmd{})
	c.addCmd(&cpCmd{})
	c.addCmd(&mvCmd{})
	c.addCmd(&infoCmd{})
	c.addCmd(&mountsCmd{})
	c.addCmd(&statusCmd{})

	return c
}

func (c *cli) Exec(args []string) error {
	c.rootCmd.SetArgs(args)
	return c.rootCmd.Execute()
}

// open builds the configured filesystem once per invocation
func (c *cli) open() (compositefs.Filesystem, error) {
	if c.fsys != nil {
		return c.fsys, nil
	}
	path := c.configPath
	if path == "" {
		path = os.Getenv(configEnv)
	}
	if path == "" {
		return nil, errors.Errorf("no config given: use --config or set %s", configEnv)
	}
	cfg, err := compositefs.LoadConfig(path)
	if err != nil {
		return nil, err
	}
	fsys, err := compositefs.NewFactory(compositefs.WithLogger(c.log)).New(cfg)
	if err != nil {
		return nil, errors.Wrapf(err, "building filesystem from %s", path)
	}
	c.log.WithFields(logrus.Fields{"config": path, "protocol": fsys.Name()}).Debug("filesystem ready")
	c.fsys = fsys
	return fsys, nil
}

func (c *cli) addCmd(cmd command) {
	cobraCmd := cmd.registerFlags()
	cobraCmd.RunE = func(innerCmd *cobra.Command, args []string) error {
		fsys, err := c.open()
		if err != nil {
			return err
		}
		return cmd.run(c, fsys, args)
	}
	c.rootCmd.AddCommand(cobraCmd)
}

type command interface {
	registerFlags() *cobra.Command
	run(c *cli, fsys compositefs.Filesystem, args []string) error
}
