package main

import (
	"flag"
	"fmt"
	"io"
	"log/slog"
	"os"

	"github.com/rmussadi/userland/modules/framesaver"
)

func main() {
	out := flag.String("out", "joe.png", "Output image path (.png or .jpg)")
	size := flag.Int("size", 16, "Gradient width and height in pixels")
	flag.Parse()

	if err := run(os.Stdout, *out, *size); err != nil {
		slog.Error("Gradient failed", "error", err)
		os.Exit(1)
	}
}

func run(w io.Writer, path string, size int) error {
	if size <= 0 {
		return fmt.Errorf("size must be > 0, got %d", size)
	}

	img := framesaver.Gradient(size, size)
	printMatrix(w, img.Pix, size)

	if err := framesaver.SaveImage(path, img); err != nil {
		return err
	}
	slog.Info("Gradient written", "path", path, "size", size)
	return nil
}

// printMatrix writes the 8-bit samples as a bracketed integer matrix
func printMatrix(w io.Writer, pix []byte, size int) {
	for y := 0; y < size; y++ {
		if y == 0 {
			fmt.Fprint(w, "[[")
		} else {
			fmt.Fprint(w, " [")
		}
		for x := 0; x < size; x++ {
			if x > 0 {
				fmt.Fprint(w, " ")
			}
			fmt.Fprintf(w, "%3d", pix[y*size+x])
		}
		if y == size-1 {
			fmt.Fprintln(w, "]]")
		} else {
			fmt.Fprintln(w, "]")
		}
	}
}
