package ws

type WSClient interface {
	GetSend() chan []byte
	WritePump()
}
