package metrics

// Stats 带宽统计快照
//
// TotalIn 和 TotalOut 为累计字节数，RateIn 和 RateOut 为最近 60 秒的平均字节/秒。
type Stats struct {
	TotalIn  int64
	TotalOut int64
	RateIn   float64
	RateOut  float64
}
