package core

import "strconv"

// Canonical payload encodings. Signature payloads are what the client signed:
// the action's fields rendered as strings and concatenated in a fixed order,
// no separators. Chain payloads are the action-type discriminator plus the
// fields that identify the effect; the chain hash runs over them together
// with identity, timestamp and predecessor. The field orders here are the
// protocol — a client that concatenates in any other order produces
// signatures and chain hashes that never validate.

func MessageSignPayload(content string, timestamp int64, prevHash string) []byte {
	return []byte(content + formatInt(timestamp) + prevHash)
}

func TransferSignPayload(recipient string, amount uint64, timestamp int64, prevHash string) []byte {
	return []byte(recipient + formatUint(amount) + formatInt(timestamp) + prevHash)
}

func CreateRoomSignPayload(roomName string, timestamp int64, prevHash string) []byte {
	return []byte(roomName + formatInt(timestamp) + prevHash)
}

func RoomTransferSignPayload(roomID, recipient string, amount uint64, timestamp int64, prevHash string) []byte {
	return []byte(roomID + recipient + formatUint(amount) + formatInt(timestamp) + prevHash)
}

func messageChainPayload(content string) string {
	return "message:" + content
}

func transferChainPayload(recipient string, amount uint64) string {
	return "transfer:" + recipient + formatUint(amount)
}

func createRoomChainPayload(roomName string) string {
	return "createRoom:" + roomName
}

func roomTransferChainPayload(roomID, recipient string, amount uint64) string {
	return "roomTokenTransfer:" + roomID + recipient + formatUint(amount)
}

func formatInt(n int64) string   { return strconv.FormatInt(n, 10) }
func formatUint(n uint64) string { return strconv.FormatUint(n, 10) }
