package app

import (
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"chat_server/pkg/logger"

	"github.com/gofiber/websocket/v2"
	"github.com/stretchr/testify/assert"
)

// overlapCheckWriter 偵測同時有兩個 writer 進入底層連線
type overlapCheckWriter struct {
	inWrite int32
	overlap int32
	writes  int32
}

func (w *overlapCheckWriter) enter() {
	if !atomic.CompareAndSwapInt32(&w.inWrite, 0, 1) {
		atomic.StoreInt32(&w.overlap, 1)
	}
	time.Sleep(time.Millisecond)
	atomic.StoreInt32(&w.inWrite, 0)
	atomic.AddInt32(&w.writes, 1)
}

func (w *overlapCheckWriter) WriteJSON(v interface{}) error {
	w.enter()
	return nil
}

func (w *overlapCheckWriter) WriteMessage(messageType int, data []byte) error {
	w.enter()
	return nil
}

func TestWsConnSerializesAllWriters(t *testing.T) {
	logger.SetNewNop()
	writer := &overlapCheckWriter{}
	wc := &wsConn{conn: writer}

	// broadcast 轉送、action response 和 ping 三種寫入同時打
	var wg sync.WaitGroup
	for i := 0; i < 10; i++ {
		wg.Add(2)
		go func() {
			defer wg.Done()
			for j := 0; j < 10; j++ {
				assert.NoError(t, wc.writeJSON(map[string]string{"action": "typing_updated"}))
			}
		}()
		go func() {
			defer wg.Done()
			for j := 0; j < 10; j++ {
				assert.NoError(t, wc.writeMessage(websocket.PingMessage, []byte("ping")))
			}
		}()
	}
	wg.Wait()

	assert.Equal(t, int32(0), atomic.LoadInt32(&writer.overlap), "two writers entered the connection at once")
	assert.Equal(t, int32(200), atomic.LoadInt32(&writer.writes))
}
