//go:build !vp8ldebug

package lossless

const debugChecks = false

func verifyStream(*TokenStream, []uint32, int, int, int) {}
