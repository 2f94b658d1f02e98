package http

import (
	"encoding/json"
	"errors"
	"net/http"
	"time"

	"github.com/gorilla/websocket"
	"go.uber.org/zap"

	"ridesight/ml"
)

const (
	wsWriteWait  = 10 * time.Second
	wsPongWait   = 60 * time.Second
	wsPingPeriod = (wsPongWait * 9) / 10
	wsMaxMessage = 4096
)

var upgrader = websocket.Upgrader{
	ReadBufferSize:  1024,
	WriteBufferSize: 1024,
	CheckOrigin: func(r *http.Request) bool {
		return true
	},
}

// wsReply 是每条入站消息对应的回复
type wsReply struct {
	Type       string         `json:"type"` // prediction or error
	Timestamp  time.Time      `json:"timestamp"`
	Prediction *ml.Prediction `json:"prediction,omitempty"`
	Error      string         `json:"error,omitempty"`
}

// handlePredictWS 建立一个预测会话：客户端每发送一个候选行程，服务端回复一次预测
func handlePredictWS(w http.ResponseWriter, r *http.Request) {
	p, err := predictor()
	if err != nil {
		fail(w, r, err)
		return
	}

	conn, err := upgrader.Upgrade(w, r, nil)
	if err != nil {
		log().Warn("websocket upgrade failed", zap.Error(err))
		return
	}
	defer conn.Close()

	requestID := GetRequestID(r.Context())
	log().Info("prediction session opened", zap.String("request_id", requestID))
	defer log().Info("prediction session closed", zap.String("request_id", requestID))

	conn.SetReadLimit(wsMaxMessage)
	conn.SetReadDeadline(time.Now().Add(wsPongWait))
	conn.SetPongHandler(func(string) error {
		return conn.SetReadDeadline(time.Now().Add(wsPongWait))
	})

	replies := make(chan wsReply, 16)
	done := make(chan struct{})
	go writePump(conn, replies, done)
	defer func() {
		close(replies)
		<-done
	}()

	for {
		_, message, err := conn.ReadMessage()
		if err != nil {
			if websocket.IsUnexpectedCloseError(err, websocket.CloseGoingAway, websocket.CloseNormalClosure) {
				log().Warn("websocket read failed", zap.String("request_id", requestID), zap.Error(err))
			}
			return
		}
		replies <- score(p, message)
	}
}

func score(p *ml.Predictor, message []byte) wsReply {
	reply := wsReply{Timestamp: time.Now()}
	candidate := ml.DefaultCandidate()
	if err := json.Unmarshal(message, &candidate); err != nil {
		reply.Type = "error"
		reply.Error = errors.Join(ml.ErrInvalidInput, err).Error()
		return reply
	}
	pred, err := p.Predict(candidate)
	if err != nil {
		reply.Type = "error"
		reply.Error = err.Error()
		return reply
	}
	reply.Type = "prediction"
	reply.Prediction = pred
	return reply
}

// writePump 负责所有写操作，并定时发送ping
func writePump(conn *websocket.Conn, replies <-chan wsReply, done chan<- struct{}) {
	ticker := time.NewTicker(wsPingPeriod)
	defer func() {
		ticker.Stop()
		close(done)
	}()

	for {
		select {
		case reply, ok := <-replies:
			conn.SetWriteDeadline(time.Now().Add(wsWriteWait))
			if !ok {
				conn.WriteMessage(websocket.CloseMessage, []byte{})
				return
			}
			if err := conn.WriteJSON(reply); err != nil {
				// 关闭连接让读循环退出，再排空剩余回复
				conn.Close()
				for range replies {
				}
				return
			}
		case <-ticker.C:
			conn.SetWriteDeadline(time.Now().Add(wsWriteWait))
			if err := conn.WriteMessage(websocket.PingMessage, nil); err != nil {
				conn.Close()
				for range replies {
				}
				return
			}
		}
	}
}
