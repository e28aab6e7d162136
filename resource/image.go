// Copyright 2024 Dominik Honnef and contributors
// SPDX-License-Identifier: Apache-2.0 OR MIT

package resource

import (
	"image"

	xdraw "golang.org/x/image/draw"

	"honnef.co/go/wren/rtask"
)

// ImageKey identifies an image template for the lifetime of a scene.
type ImageKey uint32

const InvalidImageKey ImageKey = 0

// TileSize is the edge length of image tiles when a template is tiled.
type TileSize = int32

// ImageDescriptor describes the pixel data of an image template.
type ImageDescriptor struct {
	Width    int32
	Height   int32
	IsOpaque bool
}

// ImageProperties is what the frame builder sees. Tiling is zero for
// untiled images. External image data may not have resolved yet, in which
// case GetImageProperties reports false and the primitive stays invisible
// until the next frame.
type ImageProperties struct {
	Descriptor ImageDescriptor
	Tiling     TileSize
}

// TileOffset addresses one tile of a tiled image.
type TileOffset struct {
	X int32
	Y int32
}

type imageTemplate struct {
	data     image.Image
	desc     ImageDescriptor
	tiling   TileSize
	resolved bool

	proxy    rtask.ImageProxy
	uploaded bool
	tiles    map[TileOffset]bool
}

// ImageRequest asks for an image, or one tile of it, to be resident for
// this frame.
type ImageRequest struct {
	Key  ImageKey
	Tile *TileOffset
}

func (c *Cache) AddImage(data image.Image, tiling TileSize, opaque bool) ImageKey {
	c.nextImageKey++
	key := c.nextImageKey
	b := data.Bounds()
	c.images[key] = &imageTemplate{
		data: data,
		desc: ImageDescriptor{
			Width:    int32(b.Dx()),
			Height:   int32(b.Dy()),
			IsOpaque: opaque,
		},
		tiling:   tiling,
		resolved: true,
		tiles:    make(map[TileOffset]bool),
	}
	return key
}

// AddPendingImage registers an image whose data is not available yet
// (e.g. still decoding). Primitives referencing it cull themselves until
// ResolveImage is called.
func (c *Cache) AddPendingImage(tiling TileSize) ImageKey {
	c.nextImageKey++
	key := c.nextImageKey
	c.images[key] = &imageTemplate{
		tiling: tiling,
		tiles:  make(map[TileOffset]bool),
	}
	return key
}

func (c *Cache) ResolveImage(key ImageKey, data image.Image, opaque bool) {
	tmpl := c.images[key]
	b := data.Bounds()
	tmpl.data = data
	tmpl.desc = ImageDescriptor{
		Width:    int32(b.Dx()),
		Height:   int32(b.Dy()),
		IsOpaque: opaque,
	}
	tmpl.resolved = true
}

// GetImageProperties reports the descriptor for key. ok is false while the
// image is unresolved; callers treat the primitive as transiently
// invisible.
func (c *Cache) GetImageProperties(key ImageKey) (ImageProperties, bool) {
	tmpl, ok := c.images[key]
	if !ok || !tmpl.resolved {
		return ImageProperties{}, false
	}
	return ImageProperties{
		Descriptor: tmpl.desc,
		Tiling:     tmpl.tiling,
	}, true
}

// RequestImage queues the image (or tile) for upload. Requests are
// realized into recording commands by EndFrame.
func (c *Cache) RequestImage(req ImageRequest) {
	tmpl, ok := c.images[req.Key]
	if !ok || !tmpl.resolved {
		return
	}
	if req.Tile != nil {
		if !tmpl.tiles[*req.Tile] {
			tmpl.tiles[*req.Tile] = true
			c.pendingTiles = append(c.pendingTiles, pendingTile{req.Key, *req.Tile})
		}
		return
	}
	if !tmpl.uploaded {
		c.pendingImages = append(c.pendingImages, req.Key)
	}
}

type pendingTile struct {
	key  ImageKey
	tile TileOffset
}

// realizeImage converts the template's pixels to RGBA for upload.
func realizeImage(src image.Image) *image.RGBA {
	if rgba, ok := src.(*image.RGBA); ok {
		return rgba
	}
	b := src.Bounds()
	dst := image.NewRGBA(image.Rect(0, 0, b.Dx(), b.Dy()))
	xdraw.Draw(dst, dst.Bounds(), src, b.Min, xdraw.Src)
	return dst
}

// realizeTile extracts one tile's pixels.
func realizeTile(src image.Image, tile TileOffset, size TileSize) *image.RGBA {
	b := src.Bounds()
	x0 := b.Min.X + int(tile.X)*int(size)
	y0 := b.Min.Y + int(tile.Y)*int(size)
	w := min(int(size), b.Max.X-x0)
	h := min(int(size), b.Max.Y-y0)
	dst := image.NewRGBA(image.Rect(0, 0, w, h))
	xdraw.Draw(dst, dst.Bounds(), src, image.Pt(x0, y0), xdraw.Src)
	return dst
}
