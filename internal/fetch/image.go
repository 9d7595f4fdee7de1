/*
 * Copyright (c) 2025 by Alexander Drost, Oldenburg, Germany.
 * This file is licensed to you under the Apache License, Version 2.0 (the "License"); you may not use this file except in compliance with the License.  You may obtain a copy of the License at
 *   http://www.apache.org/licenses/LICENSE-2.0
 * Unless required by applicable law or agreed to in writing, software distributed under the License is distributed on an
 * "AS IS" BASIS, WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.  See the License for the specific language governing permissions and limitations under the License.
 */

package fetch

import (
	"bytes"
	"fmt"
	"image"
	_ "image/gif"
	_ "image/jpeg"
	_ "image/png"

	_ "golang.org/x/image/bmp"
	_ "golang.org/x/image/tiff"
	_ "golang.org/x/image/webp"

	"emojiart/internal/geometry"
)

// DecodeImage decodes PNG, JPEG, GIF, BMP, TIFF or WebP bytes and returns the image and its format name.
func DecodeImage(b []byte) (image.Image, string, error) {
	if len(b) == 0 {
		return nil, "", fmt.Errorf("decode image: empty data")
	}
	img, format, err := image.Decode(bytes.NewReader(b))
	if err != nil {
		return nil, "", fmt.Errorf("decode image: %w", err)
	}
	return img, format, nil
}

// IsImage reports whether b starts with the header of a registered image format.
// Only the header is decoded.
func IsImage(b []byte) bool {
	if len(b) == 0 {
		return false
	}
	_, _, err := image.DecodeConfig(bytes.NewReader(b))
	return err == nil
}

// ImageSize returns the pixel size of img for zoom-to-fit computations.
func ImageSize(img image.Image) geometry.Size {
	if img == nil {
		return geometry.Size{}
	}
	r := img.Bounds()
	return geometry.Size{W: float64(r.Dx()), H: float64(r.Dy())}
}
