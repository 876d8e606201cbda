// Package render turns temperature snapshots into pictures.
//
// Every renderer implements sim.Renderer. Cross-section frames are drawn the
// way the cable is seen end on: one disk per shell, the conductor in the
// middle, coloured by temperature. Frames can be written as numbered PNG
// files (FrameRenderer) or appended to an MJPEG video (VideoRenderer).
// ChartRenderer and ASCIIRenderer plot temperature against radius instead.
package render
