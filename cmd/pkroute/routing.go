package main

import (
	"bufio"
	"context"
	"fmt"
	"io"
	"os"
	"strings"
	"text/tabwriter"
	"time"

	"github.com/samber/lo"
	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/arkilian/pkrouting/internal/observability"
	"github.com/arkilian/pkrouting/internal/partition"
	"github.com/arkilian/pkrouting/internal/router"
	"github.com/arkilian/pkrouting/internal/routingmap"
)

func (c *cli) openStore() (*routingmap.Store, error) {
	if err := c.cfg.EnsureDirectories(); err != nil {
		return nil, err
	}
	return routingmap.NewStore(c.cfg.Routing.SnapshotPath, c.logger)
}

// loadMap reads a routing map from a ranges file when one is given, and from
// the newest stored snapshot of the container otherwise.
func (c *cli) loadMap(ctx context.Context, rangesFile, container string) (*routingmap.Map, error) {
	if rangesFile != "" {
		data, err := os.ReadFile(rangesFile)
		if err != nil {
			return nil, fmt.Errorf("failed to read ranges file: %w", err)
		}
		ranges, err := routingmap.ParseRangesJSON(data)
		if err != nil {
			return nil, err
		}
		return routingmap.New(ranges, routingmap.WithLogger(c.logger))
	}
	if container == "" {
		return nil, fmt.Errorf("either --ranges or --container is required")
	}
	store, err := c.openStore()
	if err != nil {
		return nil, err
	}
	defer store.Close()
	return store.Load(ctx, container, routingmap.WithLogger(c.logger))
}

func (c *cli) routeCmd() *cobra.Command {
	var (
		defs        definitionFlags
		rangesFile  string
		top         int
		window      time.Duration
		overlapping bool
	)
	cmd := &cobra.Command{
		Use:   "route [KEY_JSON...]",
		Short: "Resolve keys to partition key ranges",
		Long: "Resolve keys to partition key ranges. Keys are read from the arguments, " +
			"or one JSON key per line from standard input when none are given. With " +
			"--overlapping, partial MultiHash keys list every range sharing their prefix.",
		RunE: func(cmd *cobra.Command, args []string) error {
			keys, err := c.router(&defs)
			if err != nil {
				return err
			}
			m, err := c.loadMap(cmd.Context(), rangesFile, defs.container)
			if err != nil {
				return err
			}

			stats := observability.NewRangeStats(window)
			w := tabwriter.NewWriter(cmd.OutOrStdout(), 0, 4, 2, ' ', 0)
			route := func(raw string) error {
				key, err := partition.ParseKeyJSON([]byte(raw))
				if err != nil {
					return err
				}
				if overlapping {
					rng, err := keys.EffectiveRange(key)
					if err != nil {
						return fmt.Errorf("%s: %w", raw, err)
					}
					owners := m.OverlappingRanges(rng)
					for _, r := range owners {
						stats.Record(r.ID, rng.Min)
					}
					ids := lo.Map(owners, func(r routingmap.PartitionKeyRange, _ int) string { return r.ID })
					fmt.Fprintf(w, "%s\t%s\t%s\n", key, rng, strings.Join(ids, ","))
					return nil
				}
				epk, err := keys.EffectiveKey(key)
				if err != nil {
					return fmt.Errorf("%s: %w", raw, err)
				}
				r, err := m.RangeByEffectiveKey(epk)
				if err != nil {
					return err
				}
				stats.Record(r.ID, epk)
				fmt.Fprintf(w, "%s\t%s\t%s\n", key, epk, r.ID)
				return nil
			}

			if len(args) > 0 {
				for _, arg := range args {
					if err := route(arg); err != nil {
						return err
					}
				}
			} else if err := eachLine(cmd.InOrStdin(), route); err != nil {
				return err
			}
			if err := w.Flush(); err != nil {
				return err
			}

			if top > 0 {
				stats.Prune()
				total := stats.Total()
				fmt.Fprintln(cmd.OutOrStdout())
				for _, h := range stats.TopRanges(top) {
					fmt.Fprintf(cmd.OutOrStdout(), "range %s: %d keys (%.1f%%), %d distinct\n",
						h.RangeID, h.Hits, 100*float64(h.Hits)/float64(total), len(h.Keys))
				}
			}
			c.logger.Debug("routed keys", zap.Int64("keys", stats.Total()), zap.Int("ranges", m.Len()))
			return nil
		},
	}
	defs.register(cmd)
	cmd.Flags().StringVar(&rangesFile, "ranges", "", "JSON file with partition key ranges (default: stored snapshot)")
	cmd.Flags().IntVar(&top, "top", 0, "Print the N busiest ranges after routing")
	cmd.Flags().DurationVar(&window, "window", time.Hour, "Only count ranges hit within this window in --top")
	cmd.Flags().BoolVar(&overlapping, "overlapping", false, "List every range overlapping the key's effective range")
	return cmd
}

func eachLine(r io.Reader, fn func(string) error) error {
	scanner := bufio.NewScanner(r)
	for scanner.Scan() {
		line := strings.TrimSpace(scanner.Text())
		if line == "" {
			continue
		}
		if err := fn(line); err != nil {
			return err
		}
	}
	return scanner.Err()
}

func (c *cli) snapshotCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "snapshot",
		Short: "Manage stored routing map snapshots",
	}
	cmd.AddCommand(
		c.snapshotImportCmd(),
		c.snapshotListCmd(),
		c.snapshotPruneCmd(),
		c.snapshotSplitCmd(),
		c.snapshotPublishCmd(),
		c.snapshotFetchCmd(),
	)
	return cmd
}

func (c *cli) snapshotImportCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "import CONTAINER RANGES_FILE",
		Short: "Validate a ranges file and store it as the newest snapshot",
		Args:  cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			m, err := c.loadMap(cmd.Context(), args[1], "")
			if err != nil {
				return err
			}
			return c.save(cmd, args[0], m)
		},
	}
}

func (c *cli) save(cmd *cobra.Command, container string, m *routingmap.Map) error {
	store, err := c.openStore()
	if err != nil {
		return err
	}
	defer store.Close()

	id, err := store.Save(cmd.Context(), container, m)
	if err != nil {
		return err
	}
	fmt.Fprintf(cmd.OutOrStdout(), "saved snapshot %s (%d ranges)\n", id, m.Len())
	return nil
}

func (c *cli) snapshotListCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "list CONTAINER",
		Short: "List stored snapshots, newest first",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			store, err := c.openStore()
			if err != nil {
				return err
			}
			defer store.Close()

			infos, err := store.List(cmd.Context(), args[0])
			if err != nil {
				return err
			}
			w := tabwriter.NewWriter(cmd.OutOrStdout(), 0, 4, 2, ' ', 0)
			fmt.Fprintln(w, "SNAPSHOT\tRANGES\tCREATED")
			for _, info := range infos {
				fmt.Fprintf(w, "%s\t%d\t%s\n", info.ID, info.RangeCount, info.CreatedAt.UTC().Format(time.RFC3339))
			}
			return w.Flush()
		},
	}
}

func (c *cli) snapshotPruneCmd() *cobra.Command {
	var keep int
	cmd := &cobra.Command{
		Use:   "prune CONTAINER",
		Short: "Delete all but the newest snapshots",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			if keep < 1 {
				return fmt.Errorf("--keep must be at least 1")
			}
			store, err := c.openStore()
			if err != nil {
				return err
			}
			defer store.Close()

			removed, err := store.Prune(cmd.Context(), args[0], keep)
			if err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "removed %d snapshots\n", removed)
			return nil
		},
	}
	cmd.Flags().IntVar(&keep, "keep", 5, "Number of snapshots to keep")
	return cmd
}

func (c *cli) snapshotSplitCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "split CONTAINER CHILDREN_FILE",
		Short: "Replace split parent ranges by their children and store the result",
		Long: "Fold the child ranges in CHILDREN_FILE, each naming its parents, into the " +
			"newest snapshot of CONTAINER. Fails without saving while the children " +
			"leave part of a parent uncovered.",
		Args: cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			container := args[0]
			data, err := os.ReadFile(args[1])
			if err != nil {
				return fmt.Errorf("failed to read children file: %w", err)
			}
			children, err := routingmap.ParseRangesJSON(data)
			if err != nil {
				return err
			}
			current, err := c.loadMap(cmd.Context(), "", container)
			if err != nil {
				return err
			}

			notifier := router.NewNotifier(4)
			sub := notifier.Subscribe("", container)
			defer notifier.Unsubscribe(sub.ID)

			provider := routingmap.NewProvider(notifier, c.logger)
			provider.Install(container, current)
			<-sub.Ch

			ok, err := provider.ApplySplit(container, children)
			if err != nil {
				return err
			}
			if !ok {
				return fmt.Errorf("children do not cover their parents in %s yet", container)
			}
			next, err := provider.Current(container)
			if err != nil {
				return err
			}
			notif := <-sub.Ch
			for _, id := range notif.RangeIDs {
				if next.IsGone(id) {
					fmt.Fprintf(cmd.OutOrStdout(), "retired range %s\n", id)
				}
			}
			return c.save(cmd, container, next)
		},
	}
}

func (c *cli) snapshotPublishCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "publish CONTAINER",
		Short: "Publish the newest snapshot to object storage",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			m, err := c.loadMap(cmd.Context(), "", args[0])
			if err != nil {
				return err
			}
			objects, err := c.cfg.NewObjectStore(cmd.Context())
			if err != nil {
				return err
			}
			if err := routingmap.Publish(cmd.Context(), objects, args[0], m); err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "published %s (%d ranges)\n", routingmap.ObjectPath(args[0]), m.Len())
			return nil
		},
	}
}

func (c *cli) snapshotFetchCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "fetch CONTAINER",
		Short: "Fetch a published routing map and store it as the newest snapshot",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			objects, err := c.cfg.NewObjectStore(cmd.Context())
			if err != nil {
				return err
			}
			m, err := routingmap.Fetch(cmd.Context(), objects, args[0], routingmap.WithLogger(c.logger))
			if err != nil {
				return err
			}
			return c.save(cmd, args[0], m)
		},
	}
}
