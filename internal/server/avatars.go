package server

// The avatar catalog is a fixed id space rendered entirely client-side; the
// server only validates membership. Out-of-range input maps to the default
// rather than failing the request.
const (
	avatarCount     = 16
	defaultAvatarID = 1
)

func isValidAvatarID(id int) bool {
	return id >= 1 && id <= avatarCount
}

func normalizeAvatarID(id int) int {
	if isValidAvatarID(id) {
		return id
	}
	return defaultAvatarID
}
