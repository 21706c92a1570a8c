package main

import (
	"context"
	"flag"
	"fmt"
	"log/slog"
	"maps"
	"slices"

	"github.com/charmbracelet/lipgloss"
	"github.com/eak1mov/go-vectiles/mvt"
	"github.com/eak1mov/go-vectiles/vt"
	"github.com/google/subcommands"
)

var (
	layerStyle = lipgloss.NewStyle().Foreground(lipgloss.Color("#7C3AED")).Bold(true)
	keyStyle   = lipgloss.NewStyle().Foreground(lipgloss.Color("#6B7280"))
)

type inspectCmd struct {
	input  input
	tileID string
	style  string
	props  bool
}

func (c *inspectCmd) Name() string     { return "inspect" }
func (c *inspectCmd) Synopsis() string { return "print the layers and features of one tile" }
func (c *inspectCmd) Usage() string {
	return "vtiles inspect -i <path> -t <z/x/y> [-if <format> -style <path> -props]\n"
}
func (c *inspectCmd) SetFlags(f *flag.FlagSet) {
	c.input.setFlags(f)
	f.StringVar(&c.tileID, "t", "", "Tile to inspect (z/x/y)")
	f.StringVar(&c.style, "style", "", "Style sheet path (default: built-in)")
	f.BoolVar(&c.props, "props", false, "Print feature properties")
}

func (c *inspectCmd) Execute(_ context.Context, _ *flag.FlagSet, _ ...any) subcommands.ExitStatus {
	id, err := parseTileID(c.tileID)
	if err != nil {
		slog.Error("bad tile", "error", err)
		return subcommands.ExitUsageError
	}
	styles, err := loadStyles(c.style, slog.Default())
	if err != nil {
		slog.Error("failed to load style sheet", "path", c.style, "error", err)
		return subcommands.ExitFailure
	}
	src, err := c.input.open()
	if err != nil {
		slog.Error("failed to open input", "path", c.input.path, "error", err)
		return subcommands.ExitFailure
	}
	defer src.Close()

	data, err := src.ReadTile(id)
	if err != nil {
		slog.Error("failed to read tile", "tile", id, "error", err)
		return subcommands.ExitFailure
	}
	decoded, err := mvt.Decode(data)
	if err != nil {
		slog.Error("failed to decode tile", "tile", id, "error", err)
		return subcommands.ExitFailure
	}
	built, err := vt.Build(id, data, styles, vt.WithLogger(slog.Default()))
	if err != nil {
		slog.Error("failed to build tile", "tile", id, "error", err)
		return subcommands.ExitFailure
	}

	fmt.Printf("tile %s: %d bytes, %d layers, %d features, %d vertices, %d indices\n",
		id, len(data), len(decoded.Layers), built.FeatureCount(), len(built.Mesh.Vertices), built.Mesh.IndexCount())

	objects := built.Objects()
	for i, layer := range decoded.Layers {
		l := built.Layers[i]
		fmt.Printf("%s %s\n", layerStyle.Render(layer.Name),
			keyStyle.Render(fmt.Sprintf("v%d extent=%d features=%d indices=%d", layer.Version, layer.Extent, len(layer.Features), l.Indices.Len())))
		for _, f := range l.Features {
			o := objects[f.Object]
			fmt.Printf("  #%-8d %-10s style=%d %v indices=%d\n", o.ID, o.Type, f.ID, styles.Rules(f.ID), f.Indices.Len())
			if !c.props {
				continue
			}
			for _, k := range slices.Sorted(maps.Keys(o.Properties)) {
				fmt.Printf("    %s %v\n", keyStyle.Render(k+":"), o.Properties[k])
			}
		}
	}
	return subcommands.ExitSuccess
}
