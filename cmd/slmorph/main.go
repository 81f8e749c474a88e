// slmorph turns mesh morphs and textures into rigged weights for Second Life
// animesh, and builds the animations that drive them.
package main

import (
	"errors"
	"flag"
	"fmt"
	"image/png"
	"os"
	"path/filepath"
	"strconv"
	"strings"

	"go.uber.org/zap"
	"golang.org/x/image/tiff"

	"github.com/SaladDais/sl-creation-utils/internal/bake"
	"github.com/SaladDais/sl-creation-utils/internal/config"
	"github.com/SaladDais/sl-creation-utils/internal/logger"
	"github.com/SaladDais/sl-creation-utils/internal/meshio"
	"github.com/SaladDais/sl-creation-utils/internal/texture"
	"github.com/SaladDais/sl-creation-utils/pkg/depth"
	"github.com/SaladDais/sl-creation-utils/pkg/formats"
	"github.com/SaladDais/sl-creation-utils/pkg/math"
	"github.com/SaladDais/sl-creation-utils/pkg/morph"
	"github.com/SaladDais/sl-creation-utils/pkg/morphanim"
)

func main() {
	config.ParseFlags()

	args := flag.Args()
	if len(args) < 1 {
		printUsage()
		os.Exit(1)
	}

	cfg, err := config.Load()
	if err != nil {
		fmt.Fprintf(os.Stderr, "Config error: %v\n", err)
		os.Exit(1)
	}

	if err := logger.Init(cfg.Logging.Level, cfg.Logging.LogFile); err != nil {
		fmt.Fprintf(os.Stderr, "Logger error: %v\n", err)
		os.Exit(1)
	}
	defer logger.Sync()

	command := args[0]
	args = args[1:]

	switch command {
	case "weights", "w":
		err = cmdWeights(cfg, args)
	case "anim":
		err = cmdAnim(cfg, args)
	case "bake":
		err = cmdBake(cfg, args)
	case "depth":
		err = cmdDepth(cfg, args)
	case "info":
		err = cmdInfo(args)
	case "config":
		err = cmdConfig(cfg, args)
	case "help", "-h", "--help":
		printUsage()
	default:
		fmt.Fprintf(os.Stderr, "Unknown command: %s\n", command)
		printUsage()
		os.Exit(1)
	}

	if err != nil {
		if !errors.Is(err, errUsage) {
			fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		}
		logger.Sync()
		os.Exit(1)
	}
}

// errUsage is returned after a usage line was printed.
var errUsage = errors.New("usage")

func usage(line string) error {
	fmt.Fprintln(os.Stderr, "Usage: slmorph "+line)
	return errUsage
}

func printUsage() {
	fmt.Println(`slmorph - morph rigging utilities for Second Life animesh

Usage:
  slmorph [global options] <command> [options]

Global options:
  -config <file>             Config file (default ./config.yaml, then the user config dir)
  -debug                     Enable debug logging
  -log-file <file>           Also write logs to a rotating file
  -reference-distance <n>    Displacement that maps to full weight
  -null-policy <policy>      Null joint binding: none, zero or remainder

Commands:
  weights [options] <base> [morphed] <out>   Rig a mesh so the morph animation reproduces a shape
  anim [options] <out.anim>                  Build the animation that drives the morph joints
  bake [options] <mesh> <image> <out>        Derive vertex weights from a monochrome texture
  depth <image> [lower upper] <out>          Convert a 24-bit depth render to 16-bit grayscale
  info <file.anim>                           Show animation information
  config [-save] [-o file]                   Print or save the effective configuration

Examples:
  slmorph weights -target 0 blob.glb blob_rigged.glb
  slmorph -null-policy zero weights base.gltf smiling.gltf rigged.gltf
  slmorph anim -axis-slop 2 morph.anim
  slmorph bake -bands 3 -circle -radius 2 face.glb jaw_mask.png face_rigged.glb
  slmorph depth depth.png 0.1 0.6 depth16.tif`)
}

func cmdWeights(cfg *config.Config, args []string) error {
	fs := flag.NewFlagSet("weights", flag.ExitOnError)
	target := fs.Int("target", 0, "Morph target used when no morphed mesh is given")
	mesh := fs.Int("mesh", 0, "Mesh index in the glTF document")
	up := fs.String("up", cfg.Rig.UpAxis, "Vertical axis of the input meshes: y (glTF) or z")
	dump := fs.String("dump", "", "Also write per-vertex weights to this YAML file")
	strict := fs.Bool("strict", cfg.Weights.Strict, "Reject vertices that move past the reference distance")
	fs.Parse(args)

	rest := fs.Args()
	if len(rest) != 2 && len(rest) != 3 {
		return usage("weights [-target N] [-mesh N] [-up y|z] [-dump file.yaml] [-strict] <base.gltf> [morphed.gltf] <out.gltf|glb>")
	}
	upAxis, err := meshio.ParseUpAxis(*up)
	if err != nil {
		return err
	}

	var base, morphed []math.Vec3
	if len(rest) == 2 {
		base, morphed, err = meshio.LoadMorphTarget(rest[0], *mesh, *target, upAxis)
		if err != nil {
			return err
		}
		logger.Debug("using morph target", zap.String("mesh", rest[0]), zap.Int("target", *target))
	} else {
		if base, err = meshio.LoadPositions(rest[0], *mesh, upAxis); err != nil {
			return err
		}
		if morphed, err = meshio.LoadPositions(rest[1], *mesh, upAxis); err != nil {
			return err
		}
	}
	out := rest[len(rest)-1]

	opts := cfg.MorphOptions()
	opts.Strict = *strict
	records, stats, err := morph.SolveWithStats(base, morphed, opts)
	if err != nil {
		return err
	}

	logger.Info("solved weights",
		zap.Int("vertices", stats.Vertices),
		zap.Int("moved", stats.Moved),
		zap.Stringer("null_policy", opts.NullPolicy),
		zap.Stringer("up", upAxis),
	)
	if stats.Saturated > 0 {
		logger.Warn("vertices move past the reference distance, their weights were clamped",
			zap.Int("count", stats.Saturated),
			zap.Float32("reference_distance", opts.ReferenceDistance),
		)
	}

	names := morph.GroupNames(opts.NullPolicy)
	cols := morph.Columns(records, opts.NullPolicy)
	bound := morph.Bound(records, opts.NullPolicy)
	groups := make([]meshio.Group, len(names))
	for i, name := range names {
		groups[i] = meshio.Group{Name: name, Weights: cols[i], Bound: bound[i]}
	}

	if err := meshio.WriteSkinned(rest[0], out, *mesh, groups); err != nil {
		return err
	}
	logger.Info("wrote rigged mesh", zap.String("path", out))

	if *dump != "" {
		if err := meshio.DumpWeights(*dump, meshio.WeightTable(groups)); err != nil {
			return err
		}
		logger.Info("wrote weight table", zap.String("path", *dump))
	}
	return nil
}

func cmdAnim(cfg *config.Config, args []string) error {
	opts := cfg.AnimOptions()

	fs := flag.NewFlagSet("anim", flag.ExitOnError)
	axisSlop := fs.Int("axis-slop", opts.AxisSlop, "Extra frames each axis pair is held at rest")
	interFrames := fs.Int("inter-frames", opts.InterFrames, "Smoothed keyframes per transition")
	priority := fs.Int("priority", int(opts.Priority), "Joint priority")
	duration := fs.Float64("duration", float64(opts.Duration), "Animation length in seconds")
	fs.Parse(args)

	rest := fs.Args()
	if len(rest) != 1 {
		return usage("anim [-axis-slop N] [-inter-frames N] [-priority N] [-duration S] <out.anim>")
	}

	opts.AxisSlop = *axisSlop
	opts.InterFrames = *interFrames
	opts.Priority = int32(*priority)
	opts.Duration = float32(*duration)

	anim, err := morphanim.Build(opts)
	if err != nil {
		return err
	}
	if err := anim.WriteFile(rest[0]); err != nil {
		return err
	}

	logger.Info("wrote animation",
		zap.String("path", rest[0]),
		zap.Int("joints", len(anim.Joints)),
		zap.Int("keyframes", anim.KeyframeCount()),
		zap.Float32("travel", opts.Travel),
	)
	return nil
}

func cmdBake(cfg *config.Config, args []string) error {
	opts := cfg.BakeOptions()

	fs := flag.NewFlagSet("bake", flag.ExitOnError)
	mesh := fs.Int("mesh", 0, "Mesh index in the glTF document")
	radius := fs.Int("radius", opts.Sampler.Radius, "Sample radius in pixels, 1 samples a single pixel")
	circle := fs.Bool("circle", opts.Sampler.Circle, "Sample a disc instead of a square")
	bands := fs.Int("bands", opts.Bands, "Number of overlapping weight bands")
	invert := fs.Bool("invert", opts.Invert, "Treat dark as full weight")
	names := fs.String("names", strings.Join(opts.GroupNames, ","), "Comma-separated group names for the bands")
	fs.Parse(args)

	rest := fs.Args()
	if len(rest) != 3 {
		return usage("bake [-radius N] [-circle] [-bands N] [-invert] [-names a,b] <mesh.gltf> <image> <out.gltf|glb>")
	}

	opts.Sampler = bake.Sampler{Radius: *radius, Circle: *circle}
	opts.Bands = *bands
	opts.Invert = *invert
	opts.GroupNames = nil
	if *names != "" {
		opts.GroupNames = strings.Split(*names, ",")
	}

	uvs, err := meshio.LoadTexCoords(rest[0], *mesh)
	if err != nil {
		return err
	}
	img, err := texture.Load(rest[1])
	if err != nil {
		return err
	}

	weights, err := bake.Bake(uvs, img, opts)
	if err != nil {
		return err
	}
	if err := meshio.WriteSkinned(rest[0], rest[2], *mesh, bake.Groups(weights, opts)); err != nil {
		return err
	}

	logger.Info("baked weights",
		zap.Int("vertices", len(uvs)),
		zap.Int("bands", opts.Bands),
		zap.String("path", rest[2]),
	)
	return nil
}

// depthArgs splits the depth command's arguments. An explicit lower and upper
// bound replaces the configured window.
func depthArgs(args []string, window depth.Window) (in, out string, w depth.Window, err error) {
	switch len(args) {
	case 2:
		return args[0], args[1], window, nil
	case 4:
		if window.Lower, err = strconv.ParseFloat(args[1], 64); err != nil {
			return "", "", window, fmt.Errorf("parsing lower bound: %w", err)
		}
		if window.Upper, err = strconv.ParseFloat(args[2], 64); err != nil {
			return "", "", window, fmt.Errorf("parsing upper bound: %w", err)
		}
		return args[0], args[3], window, nil
	}
	return "", "", window, usage("depth <image> [lower upper] <out.png|tif>")
}

func cmdDepth(cfg *config.Config, args []string) error {
	in, out, window, err := depthArgs(args, cfg.DepthWindow())
	if err != nil {
		return err
	}

	src, err := texture.Load(in)
	if err != nil {
		return err
	}
	gray, err := depth.Convert(src, window)
	if err != nil {
		return err
	}

	f, err := os.Create(out)
	if err != nil {
		return err
	}
	defer f.Close()

	switch strings.ToLower(filepath.Ext(out)) {
	case ".tif", ".tiff":
		err = tiff.Encode(f, gray, &tiff.Options{Compression: tiff.Deflate})
	default:
		err = png.Encode(f, gray)
	}
	if err != nil {
		return fmt.Errorf("encoding %s: %w", out, err)
	}
	if err := f.Close(); err != nil {
		return err
	}

	logger.Info("wrote depth map",
		zap.String("path", out),
		zap.Float64("lower", window.Lower),
		zap.Float64("upper", window.Upper),
	)
	return nil
}

func cmdInfo(args []string) error {
	if len(args) < 1 {
		return usage("info <file.anim>")
	}

	anim, err := formats.ParseAnimationFile(args[0])
	if err != nil {
		return err
	}

	loop := "no"
	if anim.Loop {
		loop = fmt.Sprintf("%.2fs - %.2fs", anim.LoopIn, anim.LoopOut)
	}

	fmt.Printf("Animation: %s\n", args[0])
	fmt.Printf("Version:   %d.%d\n", anim.Version, anim.SubVersion)
	fmt.Printf("Priority:  %d\n", anim.BasePriority)
	fmt.Printf("Duration:  %.2fs\n", anim.Duration)
	fmt.Printf("Loop:      %s\n", loop)
	fmt.Printf("Ease:      in %.2fs, out %.2fs\n", anim.EaseIn, anim.EaseOut)
	if anim.EmoteName != "" {
		fmt.Printf("Emote:     %s\n", anim.EmoteName)
	}
	fmt.Printf("Keyframes: %d\n", anim.KeyframeCount())
	fmt.Println()
	fmt.Printf("Joints (%d):\n", len(anim.Joints))
	for _, name := range anim.JointNames() {
		j := anim.Joint(name)
		fmt.Printf("  %-18s priority %-3d rot %-4d pos %d\n", j.Name, j.Priority, len(j.RotKeys), len(j.PosKeys))
	}
	if len(anim.Constraints) > 0 {
		fmt.Printf("Constraints: %d\n", len(anim.Constraints))
	}
	return nil
}

func cmdConfig(cfg *config.Config, args []string) error {
	fs := flag.NewFlagSet("config", flag.ExitOnError)
	save := fs.Bool("save", false, "Save to the user config directory")
	output := fs.String("o", "", "Write to this file instead of stdout")
	fs.Parse(args)

	switch {
	case *save:
		path, err := cfg.Save()
		if err != nil {
			return err
		}
		logger.Info("saved config", zap.String("path", path))
	case *output != "":
		if err := cfg.SaveTo(*output); err != nil {
			return err
		}
		logger.Info("saved config", zap.String("path", *output))
	default:
		data, err := cfg.Marshal()
		if err != nil {
			return err
		}
		os.Stdout.Write(data)
	}
	return nil
}
