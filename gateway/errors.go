package gateway

import (
	"errors"
	"fmt"
)

// ErrSymbolUnavailable 请求的合约暂无报价。
var ErrSymbolUnavailable = errors.New("symbol unavailable")

// ConnectivityError 行情或下单通道不可达；可恢复，
// 调用方应跳过本轮并在下个周期重试。
type ConnectivityError struct {
	Op  string
	Err error
}

func (e *ConnectivityError) Error() string {
	return fmt.Sprintf("gateway %s: %v", e.Op, e.Err)
}

func (e *ConnectivityError) Unwrap() error { return e.Err }

// Connectivity 包装一个连接类错误。
func Connectivity(op string, err error) error {
	return &ConnectivityError{Op: op, Err: err}
}

// IsConnectivity 判断错误是否属于连接类。
func IsConnectivity(err error) bool {
	var ce *ConnectivityError
	return errors.As(err, &ce)
}
