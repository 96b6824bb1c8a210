package enrich

import (
	"context"
	"time"

	"github.com/rs/zerolog/log"

	"github.com/E011011101001/HEAL-backend/internal/langsvc"
	"github.com/E011011101001/HEAL-backend/internal/metrics"
)

// MessageCache 是流水线需要的消息存储能力，由 store.MessageStore 提供。
type MessageCache interface {
	GetTranslation(msgID uint, lang string) (string, bool, error)
	SaveTranslation(msgID uint, lang, translation string) error
	LinkTerm(msgID, termID uint, originalSynID, translatedSynID *uint) error
}

// Enricher 对已持久化的消息做翻译与术语标注。
type Enricher struct {
	catalog  *Catalog
	messages MessageCache
	svc      langsvc.Service
	timeout  time.Duration
}

func NewEnricher(catalog *Catalog, messages MessageCache, svc langsvc.Service, timeout time.Duration) *Enricher {
	if timeout <= 0 {
		timeout = 20 * time.Second
	}
	return &Enricher{catalog: catalog, messages: messages, svc: svc, timeout: timeout}
}

// Enrich 标注原文术语，并在读者语言不同时翻译正文、标注译文术语。
// 语言服务失败只记日志降级，译文缓存命中则不再请求翻译。
// 返回错误仅代表存储故障，调用方记日志即可，消息继续投递。
func (e *Enricher) Enrich(ctx context.Context, msgID uint, text, sourceLang, targetLang string) error {
	tctx, cancel := context.WithTimeout(ctx, e.timeout)
	defer cancel()
	if resolved, err := e.catalog.Resolve(tctx, text, sourceLang); err != nil {
		log.Warn().Err(err).Uint("msg", msgID).Msg("original-text annotation skipped")
	} else {
		for _, r := range resolved {
			synID := r.SynonymID
			if err := e.messages.LinkTerm(msgID, r.TermID, &synID, nil); err != nil {
				return err
			}
		}
	}

	if sourceLang == targetLang {
		return nil
	}

	translated, ok, err := e.messages.GetTranslation(msgID, targetLang)
	if err != nil {
		return err
	}
	if ok {
		metrics.TranslationCacheHits.Inc()
	} else {
		metrics.TranslationCacheMisses.Inc()
		tctx, cancel := context.WithTimeout(ctx, e.timeout)
		defer cancel()
		translated, err = e.svc.Translate(tctx, text, targetLang)
		if err != nil {
			log.Warn().Err(err).Uint("msg", msgID).Str("lang", targetLang).Msg("translation skipped")
			return nil
		}
		if err := e.messages.SaveTranslation(msgID, targetLang, translated); err != nil {
			return err
		}
	}

	tctx2, cancel2 := context.WithTimeout(ctx, e.timeout)
	defer cancel2()
	if resolved, err := e.catalog.Resolve(tctx2, translated, targetLang); err != nil {
		log.Warn().Err(err).Uint("msg", msgID).Msg("translated-text annotation skipped")
	} else {
		for _, r := range resolved {
			synID := r.SynonymID
			if err := e.messages.LinkTerm(msgID, r.TermID, nil, &synID); err != nil {
				return err
			}
		}
	}
	return nil
}
