package program

import (
	"fmt"
	"os"
)

// LoadImage reads a program image file.
func LoadImage(path string) ([]byte, error) {
	image, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read image %s: %w", path, err)
	}
	return image, nil
}

// SaveImage writes image to path.
func SaveImage(path string, image []byte) error {
	if err := os.WriteFile(path, image, 0o644); err != nil {
		return fmt.Errorf("write image %s: %w", path, err)
	}
	return nil
}
