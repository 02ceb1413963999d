package capture

// Frame is one RGBA video frame. Pix holds 4 bytes per pixel in row-major
// order; a source that is not yet producing frames reports ok=false or a
// zero-sized frame, both of which the loop treats as "try again next tick".
type Frame struct {
	Pix    []uint8
	Width  int
	Height int
}

// FrameSource is the camera collaborator. Acquisition and permission
// handling happen outside the loop; the loop only samples whatever the
// source currently holds.
type FrameSource interface {
	Frame() (Frame, bool)
}

// Decoder is the QR decode primitive: RGBA pixels in, payload string out.
// A miss is the normal case and is reported via ok, not an error.
type Decoder interface {
	Decode(pix []uint8, width, height int) (payload string, ok bool)
}
