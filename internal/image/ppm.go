package image

import (
	"bufio"
	"fmt"
	"image"
	"image/color"
	"io"
)

// Minimal PPM codec covering the binary (P6) and plain (P3) variants.
// The stdlib and x/image have no netpbm support, and the accepted upload
// kinds include PPM, so the decoder lives here.

func init() {
	image.RegisterFormat("ppm", "P6", decodePPM, decodePPMConfig)
	image.RegisterFormat("ppm", "P3", decodePPM, decodePPMConfig)
}

// ppmHeader reads the magic, dimensions, and max value, skipping comments.
func ppmHeader(reader *bufio.Reader) (magic string, width, height, maxVal int, err error) {
	readToken := func() (string, error) {
		var token []byte
		inComment := false
		for {
			b, err := reader.ReadByte()
			if err != nil {
				if err == io.EOF && len(token) > 0 {
					return string(token), nil
				}
				return "", err
			}
			switch {
			case inComment:
				if b == '\n' {
					inComment = false
				}
			case b == '#':
				inComment = true
			case b == ' ' || b == '\t' || b == '\n' || b == '\r':
				if len(token) > 0 {
					return string(token), nil
				}
			default:
				token = append(token, b)
			}
		}
	}

	magic, err = readToken()
	if err != nil {
		return "", 0, 0, 0, err
	}
	if magic != "P6" && magic != "P3" {
		return "", 0, 0, 0, fmt.Errorf("ppm: unsupported magic %q", magic)
	}

	for _, dst := range []*int{&width, &height, &maxVal} {
		token, err := readToken()
		if err != nil {
			return "", 0, 0, 0, err
		}
		if _, err := fmt.Sscanf(token, "%d", dst); err != nil {
			return "", 0, 0, 0, fmt.Errorf("ppm: bad header token %q", token)
		}
	}

	if width < 1 || height < 1 || maxVal < 1 || maxVal > 65535 {
		return "", 0, 0, 0, fmt.Errorf("ppm: invalid dimensions %dx%d max %d", width, height, maxVal)
	}

	return magic, width, height, maxVal, nil
}

func decodePPMConfig(r io.Reader) (image.Config, error) {
	_, width, height, _, err := ppmHeader(bufio.NewReader(r))
	if err != nil {
		return image.Config{}, err
	}
	return image.Config{ColorModel: color.RGBAModel, Width: width, Height: height}, nil
}

func decodePPM(r io.Reader) (image.Image, error) {
	reader := bufio.NewReader(r)
	magic, width, height, maxVal, err := ppmHeader(reader)
	if err != nil {
		return nil, err
	}

	img := image.NewRGBA(image.Rect(0, 0, width, height))

	scale := func(v int) uint8 {
		return uint8(v * 255 / maxVal)
	}

	if magic == "P6" {
		bytesPerSample := 1
		if maxVal > 255 {
			bytesPerSample = 2
		}
		row := make([]byte, width*3*bytesPerSample)
		for y := 0; y < height; y++ {
			if _, err := io.ReadFull(reader, row); err != nil {
				return nil, fmt.Errorf("ppm: short pixel data: %w", err)
			}
			for x := 0; x < width; x++ {
				var r, g, b int
				if bytesPerSample == 1 {
					r = int(row[x*3])
					g = int(row[x*3+1])
					b = int(row[x*3+2])
				} else {
					r = int(row[x*6])<<8 | int(row[x*6+1])
					g = int(row[x*6+2])<<8 | int(row[x*6+3])
					b = int(row[x*6+4])<<8 | int(row[x*6+5])
				}
				img.SetRGBA(x, y, color.RGBA{scale(r), scale(g), scale(b), 0xff})
			}
		}
		return img, nil
	}

	// P3: ASCII samples.
	for y := 0; y < height; y++ {
		for x := 0; x < width; x++ {
			var r, g, b int
			if _, err := fmt.Fscan(reader, &r, &g, &b); err != nil {
				return nil, fmt.Errorf("ppm: short pixel data: %w", err)
			}
			img.SetRGBA(x, y, color.RGBA{scale(r), scale(g), scale(b), 0xff})
		}
	}
	return img, nil
}

// encodePPM writes img as binary P6 with 8-bit samples.
func encodePPM(w io.Writer, img image.Image) error {
	bounds := img.Bounds()
	writer := bufio.NewWriter(w)

	if _, err := fmt.Fprintf(writer, "P6\n%d %d\n255\n", bounds.Dx(), bounds.Dy()); err != nil {
		return err
	}

	row := make([]byte, bounds.Dx()*3)
	for y := bounds.Min.Y; y < bounds.Max.Y; y++ {
		i := 0
		for x := bounds.Min.X; x < bounds.Max.X; x++ {
			r, g, b := clampColor(img.At(x, y))
			row[i], row[i+1], row[i+2] = r, g, b
			i += 3
		}
		if _, err := writer.Write(row); err != nil {
			return err
		}
	}

	return writer.Flush()
}
