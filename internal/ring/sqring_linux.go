//go:build linux

package ring

import (
	"fmt"
	"sync/atomic"
	"unsafe"

	"golang.org/x/sys/unix"
)

// Raw io_uring syscall numbers (x86_64 and arm64 share these values).
// golang.org/x/sys/unix does not expose typed wrappers for them, so the
// ring is driven the same way the pack's hyperdrive and go-iouring/sys
// drivers do: via unix.Syscall6 against the bare syscall numbers, with
// the ring memory obtained through unix.Mmap rather than cgo.
const (
	sysIOURingSetup    = 425
	sysIOURingEnter    = 426
	sysIOURingRegister = 427
)

// mmap offsets into the io_uring fd (include/uapi/linux/io_uring.h).
const (
	offSQRing uint64 = 0
	offCQRing uint64 = 0x8000000
	offSQEs   uint64 = 0x10000000
)

type sqRingOffsets struct {
	head, tail, ringMask, ringEntries, flags, dropped, array uint32
	resv1                                                    uint32
	resv2                                                     uint64
}

type cqRingOffsets struct {
	head, tail, ringMask, ringEntries, overflow, cqes, flags uint32
	resv1                                                    uint32
	resv2                                                     uint64
}

type ioUringParams struct {
	sqEntries    uint32
	cqEntries    uint32
	flags        uint32
	sqThreadCPU  uint32
	sqThreadIdle uint32
	features     uint32
	wqFD         uint32
	resv         [3]uint32
	sqOff        sqRingOffsets
	cqOff        cqRingOffsets
}

// sqEntry mirrors struct io_uring_sqe (64 bytes on the wire). Only the
// fields the extended fs-ops layer (C2) actually issues are named
// individually; the rest are accessed positionally the way the
// hyperdrive driver lays its SubmissionQueueEntry out.
type sqEntry struct {
	opcode      uint8
	flags       uint8
	ioprio      uint16
	fd          int32
	off         uint64 // also addr2 for splice-like ops
	addr        uint64 // also splice_off_in
	length      uint32
	opFlags     uint32 // rw_flags / fsync_flags / statx_flags / fadvise_advice / ...
	userData    uint64
	bufIndex    uint16
	personality uint16
	spliceFDIn  int32
	addr3       uint64
	pad         uint64
}

// cqEntry mirrors struct io_uring_cqe.
type cqEntry struct {
	userData uint64
	res      int32
	flags    uint32
}

const sqEntrySize = unsafe.Sizeof(sqEntry{})
const cqEntrySize = unsafe.Sizeof(cqEntry{})

// sqRing is the mmap'd submission ring plus the separate SQE array.
type sqRing struct {
	ringMem []byte
	sqesMem []byte

	head        *uint32
	tail        *uint32
	ringMask    uint32
	ringEntries uint32
	flags       *uint32
	dropped     *uint32
	array       []uint32
	sqes        []sqEntry

	localTail uint32 // user-side staging tail, flushed to *tail on submit
}

// cqRing is the mmap'd completion ring.
type cqRing struct {
	ringMem []byte

	head        *uint32
	tail        *uint32
	ringMask    uint32
	ringEntries uint32
	overflow    *uint32
	cqes        []cqEntry
}

func ptrAt(base []byte, off uint32) unsafe.Pointer {
	return unsafe.Pointer(&base[off])
}

func u32At(base []byte, off uint32) *uint32 {
	return (*uint32)(ptrAt(base, off))
}

func ioUringSetup(entries uint32, p *ioUringParams) (int, error) {
	fd, _, errno := unix.Syscall(sysIOURingSetup, uintptr(entries), uintptr(unsafe.Pointer(p)), 0)
	if errno != 0 {
		return -1, errno
	}
	return int(fd), nil
}

func ioUringEnter(fd int, toSubmit, minComplete uint32, flags uint32) (int, error) {
	n, _, errno := unix.Syscall6(sysIOURingEnter, uintptr(fd), uintptr(toSubmit), uintptr(minComplete), uintptr(flags), 0, 0)
	if errno != 0 {
		return -1, errno
	}
	return int(n), nil
}

func ioUringRegister(fd int, opcode uint32, arg unsafe.Pointer, nrArgs uint32) error {
	_, _, errno := unix.Syscall6(sysIOURingRegister, uintptr(fd), uintptr(opcode), uintptr(arg), uintptr(nrArgs), 0, 0)
	if errno != 0 {
		return errno
	}
	return nil
}

// setupRings performs io_uring_setup and mmaps the SQ/CQ rings and the
// SQE array, returning the fd plus the two ring views.
func setupRings(queueDepth uint32) (fd int, sq *sqRing, cq *cqRing, err error) {
	var params ioUringParams
	params.sqEntries = queueDepth

	fd, err = ioUringSetup(queueDepth, &params)
	if err != nil {
		return -1, nil, nil, fmt.Errorf("io_uring_setup: %w", err)
	}

	sqRingSize := params.sqOff.array + params.sqEntries*4
	cqRingSize := params.cqOff.cqes + params.cqEntries*uint32(cqEntrySize)

	sqMem, err := unix.Mmap(fd, int64(offSQRing), int(sqRingSize), unix.PROT_READ|unix.PROT_WRITE, unix.MAP_SHARED|unix.MAP_POPULATE)
	if err != nil {
		unix.Close(fd)
		return -1, nil, nil, fmt.Errorf("mmap sq ring: %w", err)
	}

	cqMem, err := unix.Mmap(fd, int64(offCQRing), int(cqRingSize), unix.PROT_READ|unix.PROT_WRITE, unix.MAP_SHARED|unix.MAP_POPULATE)
	if err != nil {
		_ = unix.Munmap(sqMem)
		unix.Close(fd)
		return -1, nil, nil, fmt.Errorf("mmap cq ring: %w", err)
	}

	sqesSize := int(params.sqEntries) * int(sqEntrySize)
	sqesMem, err := unix.Mmap(fd, int64(offSQEs), sqesSize, unix.PROT_READ|unix.PROT_WRITE, unix.MAP_SHARED|unix.MAP_POPULATE)
	if err != nil {
		_ = unix.Munmap(sqMem)
		_ = unix.Munmap(cqMem)
		unix.Close(fd)
		return -1, nil, nil, fmt.Errorf("mmap sqes: %w", err)
	}

	sq = &sqRing{
		ringMem:     sqMem,
		sqesMem:     sqesMem,
		head:        u32At(sqMem, params.sqOff.head),
		tail:        u32At(sqMem, params.sqOff.tail),
		ringMask:    *u32At(sqMem, params.sqOff.ringMask),
		ringEntries: *u32At(sqMem, params.sqOff.ringEntries),
		flags:       u32At(sqMem, params.sqOff.flags),
		dropped:     u32At(sqMem, params.sqOff.dropped),
	}
	sq.array = unsafe.Slice((*uint32)(ptrAt(sqMem, params.sqOff.array)), sq.ringEntries)
	sq.sqes = unsafe.Slice((*sqEntry)(unsafe.Pointer(&sqesMem[0])), params.sqEntries)
	sq.localTail = atomic.LoadUint32(sq.tail)

	cq = &cqRing{
		ringMem:     cqMem,
		head:        u32At(cqMem, params.cqOff.head),
		tail:        u32At(cqMem, params.cqOff.tail),
		ringMask:    *u32At(cqMem, params.cqOff.ringMask),
		ringEntries: *u32At(cqMem, params.cqOff.ringEntries),
		overflow:    u32At(cqMem, params.cqOff.overflow),
	}
	cq.cqes = unsafe.Slice((*cqEntry)(ptrAt(cqMem, params.cqOff.cqes)), cq.ringEntries)

	return fd, sq, cq, nil
}

func (sq *sqRing) teardown() {
	_ = unix.Munmap(sq.sqesMem)
	_ = unix.Munmap(sq.ringMem)
}

func (cq *cqRing) teardown() {
	_ = unix.Munmap(cq.ringMem)
}
