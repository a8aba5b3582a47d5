package capture

// Screenshots arrive as PNG; pre-rendered captures fed to ImageRenderer may
// be in any of these formats.
import (
	_ "image/gif"
	_ "image/jpeg"
	_ "image/png"

	_ "golang.org/x/image/bmp"
	_ "golang.org/x/image/tiff"
	_ "golang.org/x/image/webp"
)
