package library

// CheckIdentifier succeeds when the body id equals the id addressed by the
// request. A missing body id never matches.
func CheckIdentifier(pathID, bodyID int64) error {
	if pathID != bodyID {
		return &IdentifierMismatchError{PathID: pathID, BodyID: bodyID}
	}
	return nil
}
