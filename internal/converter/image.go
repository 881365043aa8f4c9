// Copyright (c) 2021-2026 Rustam Gilyazov and Contributors.
//
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
//
// This program is distributed in the hope that it will be useful,
// but WITHOUT ANY WARRANTY; without even the implied warranty of
// MERCHANTABILITY or FITNESS FOR A PARTICULAR PURPOSE.  See the
// GNU Affero General Public License for more details.
//
// You should have received a copy of the GNU Affero General Public License
// along with this program.  If not, see <https://www.gnu.org/licenses/>.

package converter

import (
	"context"
	"fmt"
	"os"
	"strings"
)

// maxImageSize is the size limit of the images sent for description.
const maxImageSize = 20 << 20

// imageConverter describes the images with the Describer.  Without one,
// images have no text.
type imageConverter struct {
	d Describer
}

func (imageConverter) Accepts(info Info) bool {
	switch info.MIME {
	case "image/png", "image/jpeg", "image/gif", "image/webp":
		return true
	}
	return false
}

func (c imageConverter) Convert(ctx context.Context, path string, info Info) (string, error) {
	if c.d == nil {
		return "", nil
	}
	fi, err := os.Stat(path)
	if err != nil {
		return "", err
	}
	if fi.Size() > maxImageSize {
		return "", fmt.Errorf("image too large to describe: %d bytes", fi.Size())
	}
	data, err := os.ReadFile(path)
	if err != nil {
		return "", err
	}
	desc, err := c.d.Describe(ctx, info.MIME, data)
	if err != nil {
		return "", fmt.Errorf("describe image: %w", err)
	}
	if strings.TrimSpace(desc) == "" {
		return "", nil
	}
	return fmt.Sprintf("# %s\n\n%s\n", info.Name, desc), nil
}
