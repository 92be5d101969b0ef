package main

import (
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"os"

	"github.com/sameehj/pqoscap/internal/resctrl"
	"github.com/sameehj/pqoscap/pkg/config"
	"github.com/sameehj/pqoscap/pkg/logging"
	"github.com/sameehj/pqoscap/pkg/pqos"
	"github.com/sameehj/pqoscap/pkg/system"
	"github.com/sameehj/pqoscap/pkg/version"
	"github.com/spf13/cobra"
	"gopkg.in/yaml.v3"
)

var (
	cfgFile     string
	resctrlRoot string
	output      string
)

var allCategories = []string{"mon", "l3ca", "l2ca", "mba"}

func main() {
	root := &cobra.Command{
		Use:   "pqoscap",
		Short: "Inspect platform QoS (Intel RDT) hardware capabilities",
	}
	root.PersistentFlags().StringVar(&cfgFile, "config", "", "config file (default: ~/.pqoscap/config.yaml)")
	root.PersistentFlags().StringVar(&resctrlRoot, "resctrl", "", "resctrl mountpoint (default: discovered from /proc/mounts)")
	root.PersistentFlags().StringVarP(&output, "output", "o", "", "output format: text, yaml or json")

	root.AddCommand(showCmd())
	root.AddCommand(cosCmd())
	root.AddCommand(cdpCmd())
	root.AddCommand(mbaCtrlCmd())
	root.AddCommand(doctorCmd())
	root.AddCommand(versionCmd())

	if err := root.Execute(); err != nil {
		os.Exit(1)
	}
}

func loadConfig() (*config.Config, error) {
	path := cfgFile
	if path == "" {
		path = config.DefaultConfigPath()
	}
	cfg, err := config.LoadConfig(path)
	if err != nil {
		return nil, err
	}
	if resctrlRoot != "" {
		cfg.ResctrlRoot = resctrlRoot
	}
	if output != "" {
		cfg.Output = output
	}
	return cfg, nil
}

func newReader(cfg *config.Config) (*pqos.Cap, error) {
	provider := resctrl.New(resctrl.Config{Root: cfg.ResctrlRoot})
	provider.SetLogger(logging.New(cfg.LogLevel, cfg.LogFormat))
	return pqos.NewCap(provider)
}

// report collects decoded capabilities for structured output, one
// field per category in display order.
type report struct {
	Mon  *pqos.MonitoringCap `yaml:"mon,omitempty" json:"mon,omitempty"`
	L3CA *pqos.L3AllocCap    `yaml:"l3ca,omitempty" json:"l3ca,omitempty"`
	L2CA *pqos.L2AllocCap    `yaml:"l2ca,omitempty" json:"l2ca,omitempty"`
	MBA  *pqos.MBAAllocCap   `yaml:"mba,omitempty" json:"mba,omitempty"`
}

func (r *report) add(c pqos.Capability) {
	switch v := c.(type) {
	case *pqos.MonitoringCap:
		r.Mon = v
	case *pqos.L3AllocCap:
		r.L3CA = v
	case *pqos.L2AllocCap:
		r.L2CA = v
	case *pqos.MBAAllocCap:
		r.MBA = v
	}
}

func showCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "show [CATEGORY...]",
		Short: "Show capability details (categories: mon, l3ca, l2ca, mba; default all)",
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := loadConfig()
			if err != nil {
				return err
			}
			reader, err := newReader(cfg)
			if err != nil {
				return err
			}

			categories := args
			explicit := len(args) > 0
			if !explicit {
				categories = allCategories
			}

			rep := &report{}
			for _, category := range categories {
				c, err := reader.Get(category)
				var notPresent *pqos.NotPresentError
				if errors.As(err, &notPresent) && !explicit {
					continue
				}
				if err != nil {
					return err
				}
				rep.add(c)
			}
			return render(cmd.OutOrStdout(), cfg.Output, rep)
		},
	}
}

func cosCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "cos CATEGORY",
		Short: "Show the number of classes of service (l3ca, l2ca or mba)",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := loadConfig()
			if err != nil {
				return err
			}
			reader, err := newReader(cfg)
			if err != nil {
				return err
			}
			n, err := reader.CosNum(args[0])
			if err != nil {
				return err
			}
			fmt.Fprintln(cmd.OutOrStdout(), n)
			return nil
		},
	}
}

func cdpCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "cdp CATEGORY",
		Short: "Show code/data prioritization status (l3ca or l2ca)",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := loadConfig()
			if err != nil {
				return err
			}
			reader, err := newReader(cfg)
			if err != nil {
				return err
			}
			supported, enabled, err := reader.CDPStatus(args[0])
			if err != nil {
				return err
			}
			return renderPair(cmd.OutOrStdout(), cfg.Output, supported, enabled)
		},
	}
}

func mbaCtrlCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "mba-ctrl",
		Short: "Show MBA software controller status",
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := loadConfig()
			if err != nil {
				return err
			}
			reader, err := newReader(cfg)
			if err != nil {
				return err
			}
			supported, enabled, err := reader.MBACtrlStatus()
			if err != nil {
				return err
			}
			return renderPair(cmd.OutOrStdout(), cfg.Output, supported, enabled)
		},
	}
}

func doctorCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "doctor",
		Short: "Show platform RDT readiness",
		RunE: func(cmd *cobra.Command, args []string) error {
			profile, err := system.Detect()
			if err != nil {
				return err
			}
			w := cmd.OutOrStdout()
			fmt.Fprintf(w, "Kernel: %s\nArch: %s\n", profile.Kernel, profile.Arch)
			fmt.Fprintf(w, "RDT flags: %v\n", profile.Flags)
			if profile.ResctrlMounted {
				fmt.Fprintf(w, "resctrl: mounted at %s\n", profile.ResctrlPath)
			} else {
				fmt.Fprintln(w, "resctrl: not mounted")
			}
			return nil
		},
	}
}

func versionCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "version",
		Short: "Print version information",
		Run: func(cmd *cobra.Command, args []string) {
			fmt.Fprintln(cmd.OutOrStdout(), version.String())
		},
	}
}

func render(w io.Writer, format string, rep *report) error {
	switch format {
	case "yaml":
		data, err := yaml.Marshal(rep)
		if err != nil {
			return err
		}
		_, err = w.Write(data)
		return err
	case "json":
		data, err := json.MarshalIndent(rep, "", "  ")
		if err != nil {
			return err
		}
		_, err = fmt.Fprintln(w, string(data))
		return err
	}
	renderText(w, rep)
	return nil
}

func renderText(w io.Writer, rep *report) {
	if rep.Mon != nil {
		fmt.Fprintf(w, "mon:\n  max rmid: %d\n  l3 size: %d\n  events:\n", rep.Mon.MaxRMID, rep.Mon.L3Size)
		for _, ev := range rep.Mon.Events {
			fmt.Fprintf(w, "    %s (max rmid %d, scale %d)\n", ev.Type, ev.MaxRMID, ev.ScaleFactor)
		}
	}
	if rep.L3CA != nil {
		renderCacheText(w, "l3ca", rep.L3CA.NumClasses, rep.L3CA.NumWays, rep.L3CA.WaySize,
			rep.L3CA.WayContention, rep.L3CA.CDP, rep.L3CA.CDPOn, rep.L3CA.NonContiguousCBM)
	}
	if rep.L2CA != nil {
		renderCacheText(w, "l2ca", rep.L2CA.NumClasses, rep.L2CA.NumWays, rep.L2CA.WaySize,
			rep.L2CA.WayContention, rep.L2CA.CDP, rep.L2CA.CDPOn, rep.L2CA.NonContiguousCBM)
	}
	if rep.MBA != nil {
		fmt.Fprintf(w, "mba:\n  classes: %d\n  throttle max: %d\n  throttle step: %d\n  linear: %v\n  ctrl: %s\n  ctrl on: %s\n",
			rep.MBA.NumClasses, rep.MBA.ThrottleMax, rep.MBA.ThrottleStep, rep.MBA.IsLinear, rep.MBA.Ctrl, rep.MBA.CtrlOn)
	}
}

func renderCacheText(w io.Writer, name string, classes, ways, waySize uint32, contention uint64, cdp, cdpOn pqos.TriState, sparse bool) {
	fmt.Fprintf(w, "%s:\n  classes: %d\n  ways: %d\n  way size: %d\n  way contention: %#x\n  cdp: %s\n  cdp on: %s\n  non-contiguous cbm: %v\n",
		name, classes, ways, waySize, contention, cdp, cdpOn, sparse)
}

func renderPair(w io.Writer, format string, supported, enabled pqos.TriState) error {
	pair := struct {
		Supported pqos.TriState `yaml:"supported" json:"supported"`
		Enabled   pqos.TriState `yaml:"enabled" json:"enabled"`
	}{supported, enabled}

	switch format {
	case "yaml":
		data, err := yaml.Marshal(pair)
		if err != nil {
			return err
		}
		_, err = w.Write(data)
		return err
	case "json":
		data, err := json.MarshalIndent(pair, "", "  ")
		if err != nil {
			return err
		}
		_, err = fmt.Fprintln(w, string(data))
		return err
	}
	fmt.Fprintf(w, "supported: %s\nenabled: %s\n", supported, enabled)
	return nil
}
