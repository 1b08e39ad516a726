package main

import (
	"errors"
	"flag"
	"fmt"
	"image"
	"image/png"
	"io/fs"
	"net/http"
	_ "net/http/pprof"
	"os"

	"github.com/kestrelcore/goba/internal/gba"
	"github.com/kestrelcore/goba/internal/ppu"
	"golang.org/x/image/draw"
)

func main() {
	// pprof for profiling frame throughput
	go func() {
		if err := http.ListenAndServe("localhost:6060", nil); err != nil {
			return
		}
	}()

	testMode := flag.Bool("test", false, "run headless and exit 0/1 on the pass/fail pixel heuristic")
	frames := flag.Int("frames", 120, "number of frames to run")
	dump := flag.String("dump", "", "write the final framebuffer to this PNG file")
	biosPath := flag.String("bios", "", "BIOS image to load")
	savePath := flag.String("save", "", "save file to load before and persist after the run")
	debugAddr := flag.String("debug-addr", "", "serve websocket debug snapshots on this address")
	scale := flag.Int("scale", 2, "integer upscale factor for -dump")
	flag.Parse()

	romPath := flag.Arg(0)
	if romPath == "" {
		fmt.Fprintf(os.Stderr, "usage: %s [flags] <rom.gba>\n", os.Args[0])
		flag.PrintDefaults()
		os.Exit(2)
	}

	var opts []gba.Opt
	if *biosPath != "" {
		bios, err := os.ReadFile(*biosPath)
		if err != nil {
			fmt.Fprintln(os.Stderr, err)
			os.Exit(1)
		}
		opts = append(opts, gba.WithBIOS(bios))
	}
	if *debugAddr != "" {
		opts = append(opts, gba.WithTelemetry(*debugAddr))
	}

	g := gba.New(opts...)
	if err := g.LoadROM(romPath); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
	if *savePath != "" {
		if err := g.LoadBackup(*savePath); err != nil && !errors.Is(err, fs.ErrNotExist) {
			fmt.Fprintln(os.Stderr, err)
		}
	}

	for i := 0; i < *frames; i++ {
		g.RunFrame()
		g.ClearSampleBuffer()
	}

	if *dump != "" {
		if err := dumpPNG(*dump, g.Framebuffer(), *scale); err != nil {
			fmt.Fprintln(os.Stderr, err)
			os.Exit(1)
		}
	}
	if *savePath != "" {
		if err := g.SaveBackup(*savePath); err != nil {
			fmt.Fprintln(os.Stderr, err)
		}
	}

	if *testMode {
		if testPassed(g.Framebuffer()) {
			fmt.Println("PASS")
			os.Exit(0)
		}
		fmt.Println("FAIL")
		os.Exit(1)
	}
}

// testPassed applies the headless pass/fail heuristic: the test ROMs
// draw "pass" or "fail" text in a known screen area, so the region
// covering the pass glyph must contain more dark (inked) pixels than
// the region covering the fail glyph.
func testPassed(fb *[ppu.ScreenWidth * ppu.ScreenHeight]uint32) bool {
	return darkCount(fb, 56, 64, 76, 84) > darkCount(fb, 60, 68, 76, 84)
}

func darkCount(fb *[ppu.ScreenWidth * ppu.ScreenHeight]uint32, x0, x1, y0, y1 int) int {
	n := 0
	for y := y0; y < y1; y++ {
		for x := x0; x < x1; x++ {
			c := fb[y*ppu.ScreenWidth+x]
			r := c >> 16 & 0xFF
			g := c >> 8 & 0xFF
			b := c & 0xFF
			if r+g+b < 0x180 {
				n++
			}
		}
	}
	return n
}

// dumpPNG writes the framebuffer to a PNG, upscaled with
// nearest-neighbour so tile and sprite edges stay sharp.
func dumpPNG(path string, fb *[ppu.ScreenWidth * ppu.ScreenHeight]uint32, scale int) error {
	if scale < 1 {
		scale = 1
	}

	src := image.NewRGBA(image.Rect(0, 0, ppu.ScreenWidth, ppu.ScreenHeight))
	for y := 0; y < ppu.ScreenHeight; y++ {
		for x := 0; x < ppu.ScreenWidth; x++ {
			c := fb[y*ppu.ScreenWidth+x]
			i := src.PixOffset(x, y)
			src.Pix[i+0] = uint8(c >> 16)
			src.Pix[i+1] = uint8(c >> 8)
			src.Pix[i+2] = uint8(c)
			src.Pix[i+3] = uint8(c >> 24)
		}
	}

	dst := image.NewRGBA(image.Rect(0, 0, ppu.ScreenWidth*scale, ppu.ScreenHeight*scale))
	draw.NearestNeighbor.Scale(dst, dst.Bounds(), src, src.Bounds(), draw.Src, nil)

	f, err := os.Create(path)
	if err != nil {
		return fmt.Errorf("dump png: %w", err)
	}
	defer f.Close()
	if err := png.Encode(f, dst); err != nil {
		return fmt.Errorf("dump png: %w", err)
	}
	return nil
}
