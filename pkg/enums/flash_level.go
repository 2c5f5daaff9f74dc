package enums

// FlashLevel is the severity of a one-shot message shown on the next page.
type FlashLevel string

const (
	FlashInfo    FlashLevel = "info"
	FlashSuccess FlashLevel = "success"
	FlashWarning FlashLevel = "warning"
	FlashError   FlashLevel = "error"
)

func (f FlashLevel) String() string {
	return string(f)
}

func (f FlashLevel) IsValid() bool {
	switch f {
	case FlashInfo, FlashSuccess, FlashWarning, FlashError:
		return true
	}
	return false
}
