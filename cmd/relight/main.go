// relight builds a scene, runs the incremental light relaxation to
// convergence, and reports timing, pass statistics and the resulting
// state digest. With -dump it also writes a compressed light dump for
// offline comparison.
package main

import (
	"flag"
	"fmt"
	"log"
	"os"
	"time"

	"cubespace.dev/internal/lightdump"
	"cubespace.dev/internal/scene"
	"cubespace.dev/internal/space"
)

func main() {
	var (
		scenePath = flag.String("scene", "", "scene YAML (default: built-in demo scene)")
		epsilon   = flag.Uint("epsilon", 0, "stop once the queue's max priority drops to this")
		dumpPath  = flag.String("dump", "", "write a light dump to this path")
		quiet     = flag.Bool("quiet", false, "suppress per-pass progress lines")
	)
	flag.Parse()

	if *epsilon > 255 {
		fmt.Fprintf(os.Stderr, "-epsilon %d out of range, priorities are 0..255\n", *epsilon)
		os.Exit(2)
	}

	logger := log.New(os.Stdout, "[relight] ", log.LstdFlags|log.Lmicroseconds)

	var cfg scene.Config
	if *scenePath != "" {
		var err error
		cfg, err = scene.Load(*scenePath)
		if err != nil {
			fmt.Fprintln(os.Stderr, "load scene:", err)
			os.Exit(1)
		}
	} else {
		cfg = scene.Default()
	}

	buildStart := time.Now()
	sp, err := scene.Build(cfg)
	if err != nil {
		fmt.Fprintln(os.Stderr, "build scene:", err)
		os.Exit(1)
	}
	logger.Printf("scene=%s bounds=%v volume=%d distinct_blocks=%d build=%s",
		cfg.Name, sp.Bounds(), sp.Bounds().Volume(), len(sp.DistinctBlocks()), time.Since(buildStart).Round(time.Millisecond))

	progress := func(info space.LightUpdateInfo) {
		if *quiet {
			return
		}
		logger.Printf("pass: updated=%d queued=%d max_priority=%d",
			info.UpdateCount, info.QueueCount, info.MaxQueuePriority)
	}

	lightStart := time.Now()
	updated, err := sp.EvaluateLight(uint8(*epsilon), progress)
	if err != nil {
		fmt.Fprintln(os.Stderr, "evaluate light:", err)
		os.Exit(1)
	}
	elapsed := time.Since(lightStart)
	perCube := time.Duration(0)
	if updated > 0 {
		perCube = elapsed / time.Duration(updated)
	}
	logger.Printf("light converged: cubes=%d elapsed=%s per_cube=%s",
		updated, elapsed.Round(time.Millisecond), perCube)
	logger.Printf("digest=%s", sp.Digest())

	if *dumpPath != "" {
		dump, err := lightdump.Capture(cfg.Name, sp)
		if err != nil {
			fmt.Fprintln(os.Stderr, "capture dump:", err)
			os.Exit(1)
		}
		if err := lightdump.Write(*dumpPath, dump); err != nil {
			fmt.Fprintln(os.Stderr, "write dump:", err)
			os.Exit(1)
		}
		logger.Printf("dump written: %s cells=%d", *dumpPath, len(dump.Light))
	}
}
