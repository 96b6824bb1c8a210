package ws

import (
	"context"
	"encoding/json"
	"time"

	"github.com/rs/zerolog/log"

	"github.com/E011011101001/HEAL-backend/internal/chatbot"
	"github.com/E011011101001/HEAL-backend/internal/metrics"
	"github.com/E011011101001/HEAL-backend/internal/models"
	"github.com/E011011101001/HEAL-backend/internal/store"
)

// MessageRepo 由 store.MessageStore 提供。
type MessageRepo interface {
	SaveRaw(senderID, roomID uint, text string, sentAt time.Time) (uint, error)
	Render(roomID, msgID uint, lang string) (*store.RenderedMessage, error)
}

// RoomRepo 由 store.RoomStore 提供。
type RoomRepo interface {
	Get(roomID uint) (*models.Room, error)
	ActiveDoctorIDs(roomID uint) ([]uint, error)
}

// MessageEnricher 由 enrich.Enricher 提供。
type MessageEnricher interface {
	Enrich(ctx context.Context, msgID uint, text, sourceLang, targetLang string) error
}

// BotPool 由 chatbot.Pool 提供。
type BotPool interface {
	GetOrCreate(roomID uint, lang string) *chatbot.Bot
}

// MessageRouter 是房间内聊天消息的处理器：持久化、按阶段确定
// 目标语言、补全翻译与术语标注，最后回执发送者并广播给其他成员。
// 无启用医生的房间走 AI 问诊（阶段一），有医生后为人换人转译（阶段二）。
type MessageRouter struct {
	sessions *SessionManager
	messages MessageRepo
	rooms    RoomRepo
	users    UserResolver
	enricher MessageEnricher
	bots     BotPool
}

func NewMessageRouter(sessions *SessionManager, messages MessageRepo, rooms RoomRepo,
	users UserResolver, enricher MessageEnricher, bots BotPool) *MessageRouter {
	return &MessageRouter{
		sessions: sessions,
		messages: messages,
		rooms:    rooms,
		users:    users,
		enricher: enricher,
		bots:     bots,
	}
}

// Handle 在房间工作协程上处理一条入站事件。
func (r *MessageRouter) Handle(room *RoomHub, ev Event) {
	sess, err := r.sessions.Get(ev.ConnID)
	if err != nil {
		log.Error().Err(err).Str("conn", ev.ConnID).Msg("session lookup failed")
		ev.Sender.SendJSON(ErrorEvent{Error: KindInternalServer, Message: "session lost, please reconnect"})
		ev.Sender.Close()
		return
	}

	var frame InboundFrame
	if err := json.Unmarshal(ev.Raw, &frame); err != nil || frame.Text == nil || frame.Timestamp == nil {
		ev.Sender.SendJSON(ErrorEvent{Error: KindMissingItems, Message: missingItemsMessage})
		return
	}
	text := *frame.Text

	msgID, err := r.messages.SaveRaw(sess.User.ID, sess.RoomID, text, *frame.Timestamp)
	if err != nil {
		log.Error().Err(err).Uint("room", sess.RoomID).Msg("message persist failed")
		ev.Sender.SendJSON(ErrorEvent{Error: KindInternalServer, Message: "message could not be saved"})
		return
	}
	metrics.WsMessagesTotal.Inc()

	ctx := context.Background()
	roomRec, err := r.rooms.Get(sess.RoomID)
	if err != nil {
		log.Error().Err(err).Uint("room", sess.RoomID).Msg("room lookup failed")
		ev.Sender.SendJSON(ErrorEvent{Error: KindInternalServer, Message: "room could not be loaded"})
		return
	}
	doctorIDs, err := r.rooms.ActiveDoctorIDs(sess.RoomID)
	if err != nil {
		log.Error().Err(err).Uint("room", sess.RoomID).Msg("doctor listing failed")
		doctorIDs = nil
	}

	if sess.User.Role == models.RolePatient && len(doctorIDs) == 0 {
		r.handleIntake(ctx, room, sess, msgID, text)
		return
	}
	r.handleRelay(ctx, room, sess, ev.Sender, roomRec, doctorIDs, msgID, text)
}

// handleIntake 阶段一：房间无医生，患者与 AI 问诊机器人对话。
func (r *MessageRouter) handleIntake(ctx context.Context, room *RoomHub, sess *Session, msgID uint, text string) {
	lang := sess.User.LanguageCode
	if err := r.enricher.Enrich(ctx, msgID, text, lang, lang); err != nil {
		log.Error().Err(err).Uint("msg", msgID).Msg("enrichment storage failed")
	}
	r.deliver(room, sess.RoomID, msgID, lang)

	bot := r.bots.GetOrCreate(sess.RoomID, lang)
	reply, err := bot.Reply(ctx, text)
	if err != nil {
		log.Warn().Err(err).Uint("room", sess.RoomID).Msg("bot reply failed")
		return
	}
	botMsgID, err := r.messages.SaveRaw(models.AISenderID, sess.RoomID, reply, time.Now())
	if err != nil {
		log.Error().Err(err).Uint("room", sess.RoomID).Msg("bot message persist failed")
		return
	}
	if err := r.enricher.Enrich(ctx, botMsgID, reply, lang, lang); err != nil {
		log.Error().Err(err).Uint("msg", botMsgID).Msg("enrichment storage failed")
	}
	r.deliver(room, sess.RoomID, botMsgID, lang)
}

// handleRelay 阶段二：按发送方角色确定目标语言，回执发送者并转发其余成员。
func (r *MessageRouter) handleRelay(ctx context.Context, room *RoomHub, sess *Session, sender Sender,
	roomRec *models.Room, doctorIDs []uint, msgID uint, text string) {
	senderLang := sess.User.LanguageCode
	targetLang := senderLang
	if sess.User.Role == models.RolePatient {
		// 最近加入的医生决定译文语言
		if doctor, err := r.users.Get(doctorIDs[len(doctorIDs)-1]); err == nil {
			targetLang = doctor.LanguageCode
		} else {
			log.Warn().Err(err).Uint("room", sess.RoomID).Msg("target doctor lookup failed")
		}
	} else {
		if patient, err := r.users.Get(roomRec.PatientID); err == nil {
			targetLang = patient.LanguageCode
		} else {
			log.Warn().Err(err).Uint("room", sess.RoomID).Msg("patient lookup failed")
		}
	}

	if err := r.enricher.Enrich(ctx, msgID, text, senderLang, targetLang); err != nil {
		log.Error().Err(err).Uint("msg", msgID).Msg("enrichment storage failed")
	}

	// 发送者以自己的语言收到回执
	if ack, err := r.messages.Render(sess.RoomID, msgID, senderLang); err != nil {
		log.Warn().Err(err).Uint("msg", msgID).Msg("ack rendering failed")
	} else if err := sender.SendJSON(ack); err != nil {
		log.Warn().Err(err).Str("conn", sess.ConnID).Msg("ack send failed")
	}

	if rendered, err := r.messages.Render(sess.RoomID, msgID, targetLang); err != nil {
		log.Warn().Err(err).Uint("msg", msgID).Msg("message rendering failed")
	} else {
		room.Broadcast(rendered, sess.ConnID)
	}
}

// deliver 渲染消息并广播给房间全体成员。
func (r *MessageRouter) deliver(room *RoomHub, roomID, msgID uint, lang string) {
	rendered, err := r.messages.Render(roomID, msgID, lang)
	if err != nil {
		log.Warn().Err(err).Uint("msg", msgID).Msg("message rendering failed")
		return
	}
	room.Broadcast(rendered)
}
