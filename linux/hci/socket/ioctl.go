//go:build linux
// +build linux

package socket

import (
	"unsafe"

	"github.com/pkg/errors"
	"golang.org/x/sys/unix"
)

func ioR(t, nr, size uintptr) uintptr {
	return (2 << 30) | (t << 8) | nr | (size << 16)
}

func ioW(t, nr, size uintptr) uintptr {
	return (1 << 30) | (t << 8) | nr | (size << 16)
}

func ioctl(fd, op, arg uintptr) error {
	if _, _, ep := unix.Syscall(unix.SYS_IOCTL, fd, op, arg); ep != 0 {
		return ep
	}
	return nil
}

const (
	ioctlSize     = 4
	hciMaxDevices = 16
	hciMaxConns   = 10
	typHCI        = 72 // 'H'
)

var (
	hciUpDevice      = ioW(typHCI, 201, ioctlSize) // HCIDEVUP
	hciDownDevice    = ioW(typHCI, 202, ioctlSize) // HCIDEVDOWN
	hciGetDeviceList = ioR(typHCI, 210, ioctlSize) // HCIGETDEVLIST
	hciGetDeviceInfo = ioR(typHCI, 211, ioctlSize) // HCIGETDEVINFO
	hciGetConnList   = ioR(typHCI, 212, ioctlSize) // HCIGETCONNLIST
)

// Device flags as reported by HCIGETDEVINFO.
const (
	FlagUp      = 0
	FlagInit    = 1
	FlagRunning = 2
	FlagPScan   = 3
	FlagIScan   = 4
	FlagAuth    = 5
	FlagEncrypt = 6
	FlagInquiry = 7
	FlagRaw     = 8
)

type devListRequest struct {
	devNum     uint16
	devRequest [hciMaxDevices]struct {
		id  uint16
		opt uint32
	}
}

type devStats struct {
	errRx, errTx, cmdTx, evtRx, aclTx, aclRx, scoTx, scoRx, byteRx, byteTx uint32
}

type devInfo struct {
	devID      uint16
	name       [8]byte
	bdaddr     [6]byte
	flags      uint32
	typ        uint8
	features   [8]byte
	pktType    uint32
	linkPolicy uint32
	linkMode   uint32
	aclMtu     uint16
	aclPkts    uint16
	scoMtu     uint16
	scoPkts    uint16
	stat       devStats
}

// DevInfo is the subset of device information the adapter uses.
type DevInfo struct {
	ID       int
	Name     string
	Addr     [6]byte // display order
	Flags    uint32
	Type     uint8
	Features [8]byte
}

// Has reports whether flag bit f is set.
func (d DevInfo) Has(f uint) bool {
	return d.Flags&(1<<f) != 0
}

// ConnInfo describes an active baseband link.
type ConnInfo struct {
	Handle   uint16
	Addr     [6]byte // display order
	Type     uint8
	Out      bool
	State    uint16
	LinkMode uint32
}

type connInfo struct {
	handle   uint16
	bdaddr   [6]byte
	typ      uint8
	out      uint8
	state    uint16
	linkMode uint32
}

type connListRequest struct {
	devID   uint16
	connNum uint16
	info    [hciMaxConns]connInfo
}

func reverse(b [6]byte) [6]byte {
	return [6]byte{b[5], b[4], b[3], b[2], b[1], b[0]}
}

func ctlSocket() (int, error) {
	fd, err := unix.Socket(unix.AF_BLUETOOTH, unix.SOCK_RAW|unix.SOCK_CLOEXEC, unix.BTPROTO_HCI)
	return fd, errors.Wrap(err, "can't create control socket")
}

// DeviceUp brings hciN up. An already running device is not an error.
func DeviceUp(id int) error {
	fd, err := ctlSocket()
	if err != nil {
		return err
	}
	defer unix.Close(fd)

	if err := ioctl(uintptr(fd), hciUpDevice, uintptr(id)); err != nil && err != unix.EALREADY {
		return errors.Wrapf(err, "can't up hci%d", id)
	}
	return nil
}

// DeviceDown brings hciN down.
func DeviceDown(id int) error {
	fd, err := ctlSocket()
	if err != nil {
		return err
	}
	defer unix.Close(fd)

	if err := ioctl(uintptr(fd), hciDownDevice, uintptr(id)); err != nil {
		return errors.Wrapf(err, "can't down hci%d", id)
	}
	return nil
}

// DeviceInfo queries HCIGETDEVINFO for hciN.
func DeviceInfo(id int) (DevInfo, error) {
	fd, err := ctlSocket()
	if err != nil {
		return DevInfo{}, err
	}
	defer unix.Close(fd)

	di := devInfo{devID: uint16(id)}
	if err := ioctl(uintptr(fd), hciGetDeviceInfo, uintptr(unsafe.Pointer(&di))); err != nil {
		return DevInfo{}, errors.Wrapf(err, "can't get info of hci%d", id)
	}

	name := di.name[:]
	for i, c := range name {
		if c == 0 {
			name = name[:i]
			break
		}
	}

	return DevInfo{
		ID:       int(di.devID),
		Name:     string(name),
		Addr:     reverse(di.bdaddr),
		Flags:    di.flags,
		Type:     di.typ,
		Features: di.features,
	}, nil
}

// Devices lists the registered device indexes.
func Devices() ([]int, error) {
	fd, err := ctlSocket()
	if err != nil {
		return nil, err
	}
	defer unix.Close(fd)

	req := devListRequest{devNum: hciMaxDevices}
	if err := ioctl(uintptr(fd), hciGetDeviceList, uintptr(unsafe.Pointer(&req))); err != nil {
		return nil, errors.Wrap(err, "can't get device list")
	}

	ids := make([]int, 0, req.devNum)
	for i := 0; i < int(req.devNum); i++ {
		ids = append(ids, int(req.devRequest[i].id))
	}
	return ids, nil
}

// Connections lists the active links of hciN.
func Connections(id int) ([]ConnInfo, error) {
	fd, err := ctlSocket()
	if err != nil {
		return nil, err
	}
	defer unix.Close(fd)

	req := connListRequest{devID: uint16(id), connNum: hciMaxConns}
	if err := ioctl(uintptr(fd), hciGetConnList, uintptr(unsafe.Pointer(&req))); err != nil {
		return nil, errors.Wrapf(err, "can't get connection list of hci%d", id)
	}

	out := make([]ConnInfo, 0, req.connNum)
	for i := 0; i < int(req.connNum) && i < hciMaxConns; i++ {
		ci := req.info[i]
		out = append(out, ConnInfo{
			Handle:   ci.handle,
			Addr:     reverse(ci.bdaddr),
			Type:     ci.typ,
			Out:      ci.out != 0,
			State:    ci.state,
			LinkMode: ci.linkMode,
		})
	}
	return out, nil
}
