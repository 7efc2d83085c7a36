package linker

import "time"

// 进度事件类型
const (
	EventStart      = "start"
	EventSheetStart = "sheet_start"
	EventInfo       = "info"
	EventWarning    = "warning"
	EventSheetDone  = "sheet_done"
	EventDone       = "done"
	EventError      = "error"
)

// ProgressEvent 进度事件
type ProgressEvent struct {
	Type      string    `json:"type"`    // start/sheet_start/info/warning/sheet_done/done/error
	Message   string    `json:"message"` // 事件消息
	Data      any       `json:"data"`    // 附加数据
	Timestamp time.Time `json:"timestamp"`
}

// sendProgress 发送进度事件；通道为空或已满时丢弃
func sendProgress(ch chan<- ProgressEvent, event ProgressEvent) {
	if ch == nil {
		return
	}
	if event.Timestamp.IsZero() {
		event.Timestamp = time.Now()
	}
	select {
	case ch <- event:
	default:
		// 通道已满，丢弃事件
	}
}
