package server

import (
	"crypto/rand"
	"fmt"
	"time"
)

func newRoomCode() string {
	const alphabet = "ABCDEFGHIJKLMNOPQRSTUVWXYZ0123456789"
	buf := make([]byte, 6)
	if _, err := rand.Read(buf); err != nil {
		return "AAAAAA"
	}
	for i := range buf {
		buf[i] = alphabet[int(buf[i])%len(alphabet)]
	}
	return string(buf)
}

func newAuthToken() string {
	buf := make([]byte, 16)
	if _, err := rand.Read(buf); err != nil {
		return fmt.Sprintf("tok-%d", time.Now().UnixNano())
	}
	return fmt.Sprintf("%x", buf)
}

func timeNowUTC() time.Time {
	return time.Now().UTC()
}

func ceilHalf(n int) int {
	return (n + 1) / 2
}
