//go:build linux

package ring

// Opcode is an io_uring submission-queue-entry opcode. Values follow the
// kernel's io_uring_op enum (include/uapi/linux/io_uring.h), the same
// constants the pack's hand-rolled io_uring drivers (hyperdrive,
// go-iouring/sys) define for themselves since the Go standard library
// and golang.org/x/sys/unix expose the setup/enter/register syscalls
// but not a typed opcode enum.
type Opcode uint8

const (
	OpNop Opcode = iota
	OpReadv
	OpWritev
	OpFsync
	OpReadFixed
	OpWriteFixed
	OpPollAdd
	OpPollRemove
	OpSyncFileRange
	OpSendmsg
	OpRecvmsg
	OpTimeout
	OpTimeoutRemove
	OpAccept
	OpAsyncCancel
	OpLinkTimeout
	OpConnect
	OpFallocate
	OpOpenat
	OpClose
	OpFilesUpdate
	OpStatx
	OpRead
	OpWrite
	OpFadvise
	OpMadvise
	OpSend
	OpRecv
	OpOpenat2
	OpEpollCtl
	OpSplice
	OpProvideBuffers
	OpRemoveBuffers
	OpTee
	OpShutdown
	OpRenameat
	OpUnlinkat
	OpMkdirat
	OpSymlinkat
	OpLinkat
)

// SetupFlags are io_uring_setup() flags.
const (
	SetupSQPOLL   uint32 = 1 << 1
	SetupSQAff    uint32 = 1 << 2
	SetupCQSize   uint32 = 1 << 3
	SetupClamp    uint32 = 1 << 4
	SetupIOPoll   uint32 = 1 << 0
	SetupSubmitAll uint32 = 1 << 7
)

// EnterFlags are io_uring_enter() flags.
const (
	EnterGetEvents uint32 = 1 << 0
	EnterSQWakeup  uint32 = 1 << 1
)

// sqeFlags are per-SQE submission flags.
const (
	sqeFixedFile uint8 = 1 << 0
	sqeIODrain   uint8 = 1 << 1
	sqeIOLink    uint8 = 1 << 2
)
