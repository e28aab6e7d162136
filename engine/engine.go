// Copyright 2024 Dominik Honnef and contributors
// SPDX-License-Identifier: Apache-2.0 OR MIT

// Package engine executes the upload side of a frame's recording against a
// wgpu device: buffer and texture uploads for the GPU cache, image tiles,
// and gradient ramps. Dispatching the render task graph itself is the
// renderer backend's job.
package engine

import (
	"fmt"
	"math"
	"math/bits"

	"honnef.co/go/wgpu"

	"honnef.co/go/wren/rtask"
)

type Engine struct {
	Device *wgpu.Device

	pool resourcePool

	buffers map[rtask.ResourceID]*wgpu.Buffer
	images  map[rtask.ResourceID]imageEntry
}

type imageEntry struct {
	texture *wgpu.Texture
	view    *wgpu.TextureView
}

func New(dev *wgpu.Device) *Engine {
	return &Engine{
		Device:  dev,
		pool:    resourcePool{bufs: make(map[bufferProperties][]*wgpu.Buffer)},
		buffers: make(map[rtask.ResourceID]*wgpu.Buffer),
		images:  make(map[rtask.ResourceID]imageEntry),
	}
}

// Buffer resolves an uploaded buffer proxy to its wgpu buffer.
func (eng *Engine) Buffer(proxy rtask.BufferProxy) (*wgpu.Buffer, bool) {
	buf, ok := eng.buffers[proxy.ID]
	return buf, ok
}

// Texture resolves an uploaded image proxy to its wgpu texture view.
func (eng *Engine) Texture(proxy rtask.ImageProxy) (*wgpu.TextureView, bool) {
	entry, ok := eng.images[proxy.ID]
	return entry.view, ok
}

func imageFormatToWGPU(f rtask.ImageFormat) wgpu.TextureFormat {
	switch f {
	case rtask.Rgba8:
		return wgpu.TextureFormatRGBA8Unorm
	case rtask.Rgba8Srgb:
		return wgpu.TextureFormatRGBA8UnormSrgb
	case rtask.R8:
		return wgpu.TextureFormatR8Unorm
	default:
		panic(fmt.Sprintf("invalid image format %d", f))
	}
}

func formatBlockSize(f rtask.ImageFormat) uint32 {
	if f == rtask.R8 {
		return 1
	}
	return 4
}

// RunRecording executes the recording's commands on queue. Freed resources
// return their buffers to the pool at the end, after the queue has seen
// all writes referencing them.
func (eng *Engine) RunRecording(queue *wgpu.Queue, recording *rtask.Recording) {
	var freeBufs []rtask.ResourceID
	var freeImages []rtask.ResourceID

	for _, cmd := range recording.Commands {
		switch cmd := cmd.(type) {
		case *rtask.Upload:
			usage := wgpu.BufferUsageCopySrc | wgpu.BufferUsageCopyDst | wgpu.BufferUsageStorage
			buf := eng.pool.getBuf(cmd.Buffer.Size, cmd.Buffer.Name, usage, eng.Device)
			queue.WriteBuffer(buf, 0, cmd.Data)
			eng.buffers[cmd.Buffer.ID] = buf

		case *rtask.UploadUniform:
			usage := wgpu.BufferUsageUniform | wgpu.BufferUsageCopyDst
			buf := eng.pool.getBuf(cmd.Buffer.Size, cmd.Buffer.Name, usage, eng.Device)
			queue.WriteBuffer(buf, 0, cmd.Data)
			eng.buffers[cmd.Buffer.ID] = buf

		case *rtask.UploadImage:
			proxy := cmd.Image
			format := imageFormatToWGPU(proxy.Format)
			texture := eng.Device.CreateTexture(&wgpu.TextureDescriptor{
				Size: wgpu.Extent3D{
					Width:              proxy.Width,
					Height:             proxy.Height,
					DepthOrArrayLayers: 1,
				},
				MipLevelCount: 1,
				SampleCount:   1,
				Dimension:     wgpu.TextureDimension2D,
				Usage:         wgpu.TextureUsageTextureBinding | wgpu.TextureUsageCopyDst,
				Format:        format,
			})
			view := texture.CreateView(&wgpu.TextureViewDescriptor{
				Dimension:       wgpu.TextureViewDimension2D,
				Aspect:          wgpu.TextureAspectAll,
				MipLevelCount:   ^uint32(0),
				ArrayLayerCount: ^uint32(0),
				Format:          format,
			})
			queue.WriteTexture(
				&wgpu.ImageCopyTexture{
					Texture: texture,
					Aspect:  wgpu.TextureAspectAll,
				},
				cmd.Data,
				&wgpu.TextureDataLayout{
					BytesPerRow:  proxy.Width * formatBlockSize(proxy.Format),
					RowsPerImage: ^uint32(0),
				},
				&wgpu.Extent3D{
					Width:              proxy.Width,
					Height:             proxy.Height,
					DepthOrArrayLayers: 1,
				},
			)
			eng.images[proxy.ID] = imageEntry{texture: texture, view: view}

		case *rtask.WriteImage:
			proxy := cmd.Image
			entry, ok := eng.images[proxy.ID]
			if !ok {
				panic(fmt.Sprintf("write to unknown image %d", proxy.ID))
			}
			x, y, w, h := cmd.Coords[0], cmd.Coords[1], cmd.Coords[2], cmd.Coords[3]
			queue.WriteTexture(
				&wgpu.ImageCopyTexture{
					Texture: entry.texture,
					Origin:  wgpu.Origin3D{X: x, Y: y},
					Aspect:  wgpu.TextureAspectAll,
				},
				cmd.Data,
				&wgpu.TextureDataLayout{
					BytesPerRow: w * formatBlockSize(proxy.Format),
				},
				&wgpu.Extent3D{
					Width:              w,
					Height:             h,
					DepthOrArrayLayers: 1,
				},
			)

		case *rtask.Clear:
			buf, ok := eng.buffers[cmd.Buffer.ID]
			if !ok {
				panic(fmt.Sprintf("clear of unknown buffer %d", cmd.Buffer.ID))
			}
			encoder := eng.Device.CreateCommandEncoder(&wgpu.CommandEncoderDescriptor{Label: "clear"})
			size := uint64(cmd.Size)
			if cmd.Size < 0 {
				size = cmd.Buffer.Size - cmd.Offset
			}
			encoder.ClearBuffer(buf, cmd.Offset, size)
			cb := encoder.Finish(nil)
			encoder.Release()
			queue.Submit(cb)
			cb.Release()

		case *rtask.FreeBuffer:
			freeBufs = append(freeBufs, cmd.Buffer.ID)

		case *rtask.FreeImage:
			freeImages = append(freeImages, cmd.Image.ID)

		default:
			panic(fmt.Sprintf("unhandled command %T", cmd))
		}
	}

	for _, id := range freeBufs {
		if buf, ok := eng.buffers[id]; ok {
			delete(eng.buffers, id)
			eng.pool.putBuf(buf)
		}
	}
	for _, id := range freeImages {
		if entry, ok := eng.images[id]; ok {
			delete(eng.images, id)
			entry.view.Release()
			entry.texture.Release()
		}
	}
}

type bufferProperties struct {
	size   uint64
	usages wgpu.BufferUsage
}

// resourcePool recycles buffers in power-of-two-ish size classes so that
// per-frame uploads of slightly varying sizes reuse allocations.
type resourcePool struct {
	bufs map[bufferProperties][]*wgpu.Buffer
}

func (pool *resourcePool) getBuf(
	size uint64,
	name string,
	usage wgpu.BufferUsage,
	dev *wgpu.Device,
) *wgpu.Buffer {
	const sizeClassBits = 1

	roundedSize := poolSizeClass(size, sizeClassBits)
	props := bufferProperties{
		size:   roundedSize,
		usages: usage,
	}
	if bufVec := pool.bufs[props]; len(bufVec) > 0 {
		buf := bufVec[len(bufVec)-1]
		pool.bufs[props] = bufVec[:len(bufVec)-1]
		return buf
	}
	return dev.CreateBuffer(&wgpu.BufferDescriptor{
		Label: name,
		Size:  roundedSize,
		Usage: usage,
	})
}

func (pool *resourcePool) putBuf(buf *wgpu.Buffer) {
	props := bufferProperties{
		size:   buf.Size(),
		usages: buf.Usage(),
	}
	pool.bufs[props] = append(pool.bufs[props], buf)
}

func poolSizeClass(x uint64, numBits uint32) uint64 {
	if x > 1<<numBits {
		a := bits.LeadingZeros64(x - 1)
		b := (x - 1) | (((math.MaxUint64 / 2) >> numBits) >> a)
		return b + 1
	}
	return 1 << numBits
}
