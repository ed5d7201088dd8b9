// Package process runs a capture subprocess whose stdout carries frame data.
//
// Run starts the command, hands stdout to a consumer and forwards stderr
// lines to a logger. On cancellation the process group receives SIGINT,
// then SIGKILL when it does not exit within the graceful timeout:
//
//	p := process.New("capture", "ffmpeg -f v4l2 -i /dev/video0 -f rawvideo -pix_fmt yuv420p -", logger)
//	code, err := p.Run(ctx, func(stdout io.Reader) error {
//		return readFrames(stdout)
//	})
package process
