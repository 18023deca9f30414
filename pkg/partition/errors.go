package partition

import "errors"

var (
	ErrNotFound     = errors.New("partition not found")
	ErrOutOfRange   = errors.New("offset out of partition range")
	ErrSizeTooLarge = errors.New("size exceeds partition end")
	ErrInvalidArg   = errors.New("invalid argument")
	ErrInvalidSize  = errors.New("invalid size")
	ErrFlash        = errors.New("flash operation failed")
	ErrFail         = errors.New("operation failed")
)

// esp_err_t values expected by storage engines ported from ESP-IDF.
const (
	ESPOK             int32 = 0
	ESPFail           int32 = -1
	ESPErrInvalidArg  int32 = 0x102
	ESPErrInvalidSize int32 = 0x104
	ESPErrNotFound    int32 = 0x105
	ESPErrFlashBase   int32 = 0x6000
)

// Code maps err to the esp_err_t value the firmware API returns for it.
// Range errors collapse onto the argument and size codes like the
// firmware does.
func Code(err error) int32 {
	switch {
	case err == nil:
		return ESPOK
	case errors.Is(err, ErrNotFound):
		return ESPErrNotFound
	case errors.Is(err, ErrOutOfRange), errors.Is(err, ErrInvalidArg):
		return ESPErrInvalidArg
	case errors.Is(err, ErrSizeTooLarge), errors.Is(err, ErrInvalidSize):
		return ESPErrInvalidSize
	case errors.Is(err, ErrFail):
		return ESPFail
	case errors.Is(err, ErrFlash):
		return ESPErrFlashBase
	default:
		return ESPFail
	}
}
