//go:build linux

package copier

import (
	"context"
	"os"

	"github.com/ringcp/ringcp/internal/classify"
	"github.com/ringcp/ringcp/internal/fsops"
	"github.com/ringcp/ringcp/internal/ring"
)

// transferRangeCopy implements §4.6's copy_file_range strategy: open
// both descriptors, preallocate and advise the destination, then loop
// CopyRange calls until every byte has moved. A zero-progress call
// with no error signals the kernel made no progress (sparse region
// edge, or the two files turned out not to share a filesystem after
// all) and is treated as Unsupported so the caller falls back.
func (c *Copier) transferRangeCopy(it Item) (int64, error) {
	src, err := os.Open(it.SrcPath)
	if err != nil {
		return 0, fsops.ClassifyPathError(it.SrcPath, err)
	}
	defer src.Close()

	if c.opts.Overwrite {
		_ = os.Remove(it.DstPath)
	}
	dst, err := openDestination(it.DstPath, it.Meta, c.opts)
	if err != nil {
		return 0, err
	}
	defer dst.Close()

	_ = fsops.Preallocate(dst, 0, it.Meta.Size)
	_ = fsops.Advise(src, 0, it.Meta.Size, fsops.Sequential)

	var total int64
	for total < it.Meta.Size {
		remaining := it.Meta.Size - total
		chunk := remaining
		if chunk > maxCopyRangeChunk {
			chunk = maxCopyRangeChunk
		}
		n, err := fsops.CopyRange(dst, src, total, total, int(chunk))
		if err != nil {
			return total, err
		}
		if n == 0 {
			return total, classify.New(classify.Unsupported, it.DstPath, errNoProgress)
		}
		total += int64(n)
	}

	_ = fsops.Advise(dst, 0, total, fsops.DontNeed)
	return total, nil
}

const maxCopyRangeChunk = 1 << 30 // 1 GiB per copy_file_range call, matching typical kernel chunking limits

var errNoProgress = noProgressError{}

type noProgressError struct{}

func (noProgressError) Error() string { return "copy_file_range made no progress" }

// bufferedPipelineDepth bounds how many read/write chunks the buffered
// transfer keeps outstanding at once (§4.6 step 7: a pipeline of depth
// 2-8, so a slow destination write never stalls the next chunk's
// read). 4 sits in the middle of that range.
const bufferedPipelineDepth = 4

type readSlot struct {
	offset int64
	length int64
	buf    []byte
	fut    *ring.Future
}

type writeSlot struct {
	offset int64
	length int64
	buf    []byte
	fut    *ring.Future
}

// transferBuffered implements §4.6's fallback strategy: a pipelined
// read/write loop driven entirely through the async SQ runtime (C1).
// Up to bufferedPipelineDepth reads are kept in flight ahead of the
// chunk currently being written, and up to bufferedPipelineDepth
// writes are left outstanding behind it, so a slow destination write
// never stalls the next chunk's read. Each chunk's buffer is kept
// referenced by its slot for the lifetime of the Op that uses it.
func (c *Copier) transferBuffered(ctx context.Context, it Item) (int64, error) {
	src, err := os.Open(it.SrcPath)
	if err != nil {
		return 0, fsops.ClassifyPathError(it.SrcPath, err)
	}
	defer src.Close()

	if c.opts.Overwrite {
		_ = os.Remove(it.DstPath)
	}
	dst, err := openDestination(it.DstPath, it.Meta, c.opts)
	if err != nil {
		return 0, err
	}
	defer dst.Close()

	_ = fsops.Preallocate(dst, 0, it.Meta.Size)
	_ = fsops.Advise(src, 0, it.Meta.Size, fsops.Sequential)
	_ = fsops.Advise(src, 0, it.Meta.Size, fsops.WillNeed)

	chunkSize := int64(c.opts.ResolvedBufferSize())
	srcFD := int32(src.Fd())
	dstFD := int32(dst.Fd())

	var offsets []int64
	for off := int64(0); off < it.Meta.Size; off += chunkSize {
		offsets = append(offsets, off)
	}

	submitRead := func(idx int) (*readSlot, error) {
		off := offsets[idx]
		n := chunkSize
		if remaining := it.Meta.Size - off; n > remaining {
			n = remaining
		}
		buf := make([]byte, n)
		fut, err := c.worker.Submit(ctx, ring.Op{
			Opcode: ring.OpRead,
			FD:     srcFD,
			Offset: uint64(off),
			Addr:   ring.BufAddr(buf),
			Length: uint32(n),
		})
		if err != nil {
			return nil, classify.New(classify.BackPressure, it.SrcPath, err)
		}
		return &readSlot{offset: off, length: n, buf: buf, fut: fut}, nil
	}

	waitWrite := func(w writeSlot) (int64, error) {
		res := w.fut.Wait()
		if res.Err != nil {
			return 0, fsops.ClassifyErrno(it.DstPath, res.Err)
		}
		if int64(res.Res) != w.length {
			return 0, classify.New(classify.IntegrityFailure, it.DstPath, errShortWrite)
		}
		return w.length, nil
	}

	var (
		total         int64
		nextRead      int
		pendingReads  []*readSlot
		pendingWrites []writeSlot
	)
	// On every exit path, wait for any read or write the kernel still
	// owns before the slots holding its buffer become unreachable.
	defer func() {
		for _, rs := range pendingReads {
			rs.fut.Wait()
		}
		for _, w := range pendingWrites {
			w.fut.Wait()
		}
	}()

	for len(pendingReads) < bufferedPipelineDepth && nextRead < len(offsets) {
		rs, err := submitRead(nextRead)
		if err != nil {
			return total, err
		}
		pendingReads = append(pendingReads, rs)
		nextRead++
	}

	for len(pendingReads) > 0 {
		if cerr := ctx.Err(); cerr != nil {
			return total, classify.New(classify.Cancelled, it.SrcPath, cerr)
		}

		rs := pendingReads[0]
		pendingReads = pendingReads[1:]

		res := rs.fut.Wait()
		if res.Err != nil {
			return total, fsops.ClassifyErrno(it.SrcPath, res.Err)
		}
		read := int64(res.Res)
		if read == 0 {
			break // short source: fewer bytes than stat reported
		}

		writeFut, err := c.worker.Submit(ctx, ring.Op{
			Opcode: ring.OpWrite,
			FD:     dstFD,
			Offset: uint64(rs.offset),
			Addr:   ring.BufAddr(rs.buf[:read]),
			Length: uint32(read),
		})
		if err != nil {
			return total, classify.New(classify.BackPressure, it.DstPath, err)
		}
		pendingWrites = append(pendingWrites, writeSlot{offset: rs.offset, length: read, buf: rs.buf, fut: writeFut})

		if nextRead < len(offsets) {
			next, err := submitRead(nextRead)
			if err != nil {
				return total, err
			}
			pendingReads = append(pendingReads, next)
			nextRead++
		}

		if len(pendingWrites) >= bufferedPipelineDepth {
			oldest := pendingWrites[0]
			pendingWrites = pendingWrites[1:]
			n, err := waitWrite(oldest)
			if err != nil {
				return total, err
			}
			total += n
		}
	}

	for _, w := range pendingWrites {
		n, err := waitWrite(w)
		if err != nil {
			return total, err
		}
		total += n
	}

	_ = fsops.Advise(dst, 0, total, fsops.DontNeed)
	return total, nil
}

var errShortWrite = shortWriteError{}

type shortWriteError struct{}

func (shortWriteError) Error() string { return "short write during buffered transfer" }
