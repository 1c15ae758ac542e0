package main

import (
	"fmt"
	"io"
	"log"
	"os"
	"path/filepath"

	"github.com/spf13/cobra"

	"nfcplay/cover"
)

type coverOptions struct {
	outDir    string
	font      string
	customURL string
	printer   string
}

func newCoverCommand() *cobra.Command {
	var opts coverOptions

	cmd := &cobra.Command{
		Use:   "cover <album dir>",
		Short: "Render printable front and back card covers for an album",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			_, _, err := makeCovers(args[0], opts, cmd.OutOrStdout())
			return err
		},
	}

	cmd.Flags().StringVarP(&opts.outDir, "output", "o", "", "Output directory (default: the album directory)")
	cmd.Flags().StringVar(&opts.font, "font", "", "TrueType font for the card text")
	cmd.Flags().StringVar(&opts.customURL, "custom-url", "", "URL printed as a QR code at the bottom of the back card")
	cmd.Flags().StringVar(&opts.printer, "print", "", "Also print the front card on a Dymo LabelWriter device, e.g. /dev/usb/lp0")

	return cmd
}

// makeCovers writes <album>_front.png and <album>_back.png into opts.outDir,
// or into dir when no output directory is given.
func makeCovers(dir string, opts coverOptions, w io.Writer) (front, back string, err error) {
	if opts.outDir == "" {
		opts.outDir = dir
	}
	fi, err := os.Stat(dir)
	if err != nil {
		return "", "", fmt.Errorf("album dir: %w", err)
	}
	if !fi.IsDir() {
		return "", "", fmt.Errorf("album dir %s is not a directory", dir)
	}

	info, err := cover.LoadAlbum(dir)
	if err != nil {
		return "", "", err
	}

	if art := cover.FindLocalCover(dir); art != "" {
		img, err := cover.LoadImage(art)
		if err != nil {
			log.Printf("Warning: %v, using a generated cover", err)
		} else {
			info.Cover = img
			fmt.Fprintf(w, "Cover art: %s\n", art)
		}
	}

	if err := os.MkdirAll(opts.outDir, 0755); err != nil {
		return "", "", fmt.Errorf("create output dir: %w", err)
	}

	r := cover.NewRenderer(opts.font)
	frontImg := r.RenderFront(info)

	front = filepath.Join(opts.outDir, info.FileName()+"_front.png")
	back = filepath.Join(opts.outDir, info.FileName()+"_back.png")
	if err := cover.SavePNG(front, frontImg); err != nil {
		return "", "", err
	}
	if err := cover.SavePNG(back, r.RenderBack(info, opts.customURL)); err != nil {
		return "", "", err
	}
	fmt.Fprintf(w, "Wrote %s\nWrote %s\n", front, back)

	if opts.printer != "" {
		if err := cover.Print(frontImg, opts.printer); err != nil {
			return front, back, err
		}
		fmt.Fprintf(w, "Sent front card to %s\n", opts.printer)
	}
	return front, back, nil
}
