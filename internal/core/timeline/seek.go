package timeline

// SeekPosition 将墙上时间映射为拼接后视频中的播放位置（秒）
// 录像存在空洞，空洞不计入播放时长；timestamp 落在首段之前或末段之后时返回 false
// inpointOffset 为流媒体在首段头部裁掉的秒数，见 InpointOffset
func SeekPosition(timestamp float64, segments []Segment, inpointOffset float64) (float64, bool) {
	if len(segments) == 0 {
		return 0, false
	}
	if timestamp < segments[0].StartTime || timestamp > segments[len(segments)-1].EndTime {
		return 0, false
	}

	var seekSeconds float64
	for _, seg := range segments {
		// 输入无序时提前退出
		if seg.StartTime > timestamp {
			break
		}
		if seg.EndTime < timestamp {
			seekSeconds += seg.Duration()
			continue
		}
		// 以片段边界为准计算，而不是 timestamp - StartTime
		seekSeconds += seg.Duration() - (seg.EndTime - timestamp)
	}

	seekSeconds -= inpointOffset
	if seekSeconds < 0 {
		return 0, false
	}
	return seekSeconds, true
}

// InpointOffset 请求窗口起点落在首段内部时，流媒体会从窗口起点开始输出，
// 首段头部被裁掉的秒数需要在 SeekPosition 中扣除
func InpointOffset(timeRangeStart float64, first *Segment) float64 {
	if timeRangeStart == 0 || first == nil {
		return 0
	}
	if first.StartTime < timeRangeStart && timeRangeStart < first.EndTime {
		return timeRangeStart - first.StartTime
	}
	return 0
}
