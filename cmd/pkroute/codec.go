package main

import (
	"encoding/hex"
	"fmt"
	"strconv"
	"strings"

	"github.com/spf13/cobra"

	"github.com/arkilian/pkrouting/internal/murmur"
	"github.com/arkilian/pkrouting/internal/partition"
	"github.com/arkilian/pkrouting/pkg/types"
)

// definitionFlags selects a partition key definition either by configured
// container name or inline.
type definitionFlags struct {
	container string
	kind      string
	version   int
	paths     []string
}

func (f *definitionFlags) register(cmd *cobra.Command) {
	cmd.Flags().StringVar(&f.container, "container", "", "Configured container whose definition to use")
	cmd.Flags().StringVar(&f.kind, "kind", "", "Partition kind: Hash, MultiHash, Range")
	cmd.Flags().IntVar(&f.version, "pk-version", 0, "Partition key version: 1 or 2 (default depends on kind)")
	cmd.Flags().StringSliceVar(&f.paths, "paths", []string{"/id"}, "Partition key paths")
}

func (c *cli) definition(f *definitionFlags) (types.PartitionKeyDefinition, error) {
	if f.container != "" {
		return c.cfg.Definition(f.container)
	}
	if f.kind == "" {
		return types.PartitionKeyDefinition{}, fmt.Errorf("either --container or --kind is required")
	}
	kind, err := types.ParsePartitionKind(f.kind)
	if err != nil {
		return types.PartitionKeyDefinition{}, err
	}
	def := types.PartitionKeyDefinition{
		Paths:   f.paths,
		Kind:    kind,
		Version: types.PartitionKeyVersion(f.version),
	}
	return def, partition.ValidateDefinition(def)
}

func (c *cli) router(f *definitionFlags) (*partition.Router, error) {
	def, err := c.definition(f)
	if err != nil {
		return nil, err
	}
	return partition.NewRouter(def,
		partition.WithLogger(c.logger),
		partition.WithStrictArity(c.cfg.Routing.StrictArity))
}

func (c *cli) epkCmd() *cobra.Command {
	var defs definitionFlags
	cmd := &cobra.Command{
		Use:     "epk KEY_JSON...",
		Short:   "Compute effective partition keys",
		Example: `  pkroute epk --kind Hash --pk-version 2 '["tenant-1"]'`,
		Args:    cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			router, err := c.router(&defs)
			if err != nil {
				return err
			}
			for _, arg := range args {
				key, err := partition.ParseKeyJSON([]byte(arg))
				if err != nil {
					return err
				}
				epk, err := router.EffectiveKey(key)
				if err != nil {
					return fmt.Errorf("%s: %w", arg, err)
				}
				fmt.Fprintln(cmd.OutOrStdout(), epk)
			}
			return nil
		},
	}
	defs.register(cmd)
	return cmd
}

func (c *cli) rangeCmd() *cobra.Command {
	var defs definitionFlags
	cmd := &cobra.Command{
		Use:   "range KEY_JSON",
		Short: "Compute the effective key range addressed by a (partial) key",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			router, err := c.router(&defs)
			if err != nil {
				return err
			}
			key, err := partition.ParseKeyJSON([]byte(args[0]))
			if err != nil {
				return err
			}
			rng, err := router.EffectiveRange(key)
			if err != nil {
				return err
			}
			fmt.Fprintln(cmd.OutOrStdout(), rng)
			return nil
		},
	}
	defs.register(cmd)
	return cmd
}

func (c *cli) splitCmd() *cobra.Command {
	var defs definitionFlags
	var parts int
	cmd := &cobra.Command{
		Use:   "split MIN MAX",
		Short: "Split an effective key range at its midpoint or into N equal parts",
		Args:  cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			router, err := c.router(&defs)
			if err != nil {
				return err
			}
			if parts <= 0 {
				mid, err := router.MiddleKey(args[0], args[1])
				if err != nil {
					return err
				}
				fmt.Fprintln(cmd.OutOrStdout(), mid)
				return nil
			}
			ranges, err := router.SubRanges(args[0], args[1], parts)
			if err != nil {
				return err
			}
			for _, rng := range ranges {
				fmt.Fprintln(cmd.OutOrStdout(), rng)
			}
			return nil
		},
	}
	defs.register(cmd)
	cmd.Flags().IntVarP(&parts, "parts", "n", 0, "Number of equal sub-ranges (default: print the midpoint)")
	return cmd
}

func (c *cli) widthCmd() *cobra.Command {
	var defs definitionFlags
	cmd := &cobra.Command{
		Use:   "width MIN MAX",
		Short: "Print the share of the hash space covered by a range",
		Args:  cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			router, err := c.router(&defs)
			if err != nil {
				return err
			}
			w, err := router.Width(args[0], args[1])
			if err != nil {
				return err
			}
			fmt.Fprintln(cmd.OutOrStdout(), strconv.FormatFloat(w, 'g', -1, 64))
			return nil
		},
	}
	defs.register(cmd)
	return cmd
}

func (c *cli) hashCmd() *cobra.Command {
	var (
		bits   int
		seed   uint64
		seedHi uint64
		isHex  bool
	)
	cmd := &cobra.Command{
		Use:   "hash DATA",
		Short: "Print the Murmur3 digest of DATA",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			data := []byte(args[0])
			if isHex {
				var err error
				if data, err = hex.DecodeString(strings.TrimPrefix(args[0], "0x")); err != nil {
					return fmt.Errorf("invalid hex input: %w", err)
				}
			}
			out := cmd.OutOrStdout()
			switch bits {
			case 32:
				fmt.Fprintf(out, "%08x\n", murmur.Hash32(data, uint32(seed)))
			case 64:
				fmt.Fprintf(out, "%016x\n", murmur.Hash64(data, seed))
			case 128:
				fmt.Fprintln(out, murmur.Hash128(data, murmur.Uint128{Hi: seedHi, Lo: seed}))
			default:
				return fmt.Errorf("unsupported digest size %d (must be 32, 64 or 128)", bits)
			}
			return nil
		},
	}
	cmd.Flags().IntVar(&bits, "bits", 128, "Digest size: 32, 64 or 128")
	cmd.Flags().Uint64Var(&seed, "seed", 0, "Seed (low 64 bits for 128-bit digests)")
	cmd.Flags().Uint64Var(&seedHi, "seed-hi", 0, "High 64 bits of the 128-bit seed")
	cmd.Flags().BoolVar(&isHex, "hex", false, "Treat DATA as hex-encoded bytes")
	return cmd
}
