// Package enrich 实现消息的翻译与术语标注流水线。
// 标注和翻译都是尽力而为：语言服务失败只降级，绝不阻塞消息投递。
package enrich

import (
	"context"
	"sync"

	"github.com/rs/zerolog/log"

	"github.com/E011011101001/HEAL-backend/internal/langsvc"
	"github.com/E011011101001/HEAL-backend/internal/models"
	"github.com/E011011101001/HEAL-backend/internal/store"
)

// TermIndex 是目录需要的术语存储能力，由 store.TermStore 提供。
type TermIndex interface {
	FindSynonym(lang, text string) (*models.MedicalTermSynonym, error)
	CreateConcept(data store.CreateTerm) (uint, error)
	SynonymStrings(termID uint, lang string) ([]string, error)
	AddSynonyms(termID uint, lang string, synonyms []string) error
}

// Resolved 是文本中识别出的一个术语在目录中的落点。
type Resolved struct {
	TermID    uint
	SynonymID uint
	Synonym   string
}

// Catalog 把语言服务识别出的术语解析到术语目录，未知概念按需创建。
// 创建路径按 (语言, 术语) 粒度持锁，同一术语的并发建档被串行化，
// 不同术语互不阻塞。
type Catalog struct {
	mu    sync.Mutex
	locks map[string]*termLock
	index TermIndex
	svc   langsvc.Service
}

type termLock struct {
	sync.Mutex
	refs int
}

func NewCatalog(index TermIndex, svc langsvc.Service) *Catalog {
	return &Catalog{locks: make(map[string]*termLock), index: index, svc: svc}
}

// lockTerm 取 (语言, 术语) 对应的锁并加锁，返回释放函数。
func (c *Catalog) lockTerm(lang, term string) func() {
	key := lang + "\x00" + term
	c.mu.Lock()
	l := c.locks[key]
	if l == nil {
		l = &termLock{}
		c.locks[key] = l
	}
	l.refs++
	c.mu.Unlock()

	l.Lock()
	return func() {
		l.Unlock()
		c.mu.Lock()
		l.refs--
		if l.refs == 0 {
			delete(c.locks, key)
		}
		c.mu.Unlock()
	}
}

// Resolve 识别 text 中的医疗术语并逐个落到目录：
// 同义词命中已有概念则复用，全部未命中则请求释义并新建概念，
// 最后把识别到的同义词差集并入该语言的同义词表。
// 单个术语解释失败只跳过该术语，不影响其余。
func (c *Catalog) Resolve(ctx context.Context, text, lang string) ([]Resolved, error) {
	extracted, err := c.svc.ExtractTerms(ctx, text, lang)
	if err != nil {
		return nil, err
	}
	if len(extracted) == 0 {
		return nil, nil
	}

	var out []Resolved
	for _, term := range extracted {
		res, ok, err := c.resolveTerm(ctx, lang, term)
		if err != nil {
			return out, err
		}
		if ok {
			out = append(out, res)
		}
	}
	return out, nil
}

// resolveTerm 在 (语言, 术语) 锁内解析单个术语。ok=false 表示该术语被跳过。
func (c *Catalog) resolveTerm(ctx context.Context, lang string, term langsvc.ExtractedTerm) (Resolved, bool, error) {
	unlock := c.lockTerm(lang, term.Term)
	defer unlock()

	termID, found, err := c.lookup(lang, term.Synonyms)
	if err != nil {
		return Resolved{}, false, err
	}
	if !found {
		termID, err = c.create(ctx, term.Term, lang)
		if err != nil {
			log.Warn().Err(err).Str("term", term.Term).Str("lang", lang).
				Msg("skipping unresolvable term")
			return Resolved{}, false, nil
		}
	}
	if err := c.growSynonyms(termID, lang, term.Synonyms); err != nil {
		return Resolved{}, false, err
	}
	syn, err := c.index.FindSynonym(lang, term.Term)
	if err != nil {
		return Resolved{}, false, err
	}
	if syn == nil {
		// 识别文本本身必在同义词表里，走到这里说明提取结果异常
		log.Warn().Str("term", term.Term).Msg("recognized text missing from synonym table")
		return Resolved{}, false, nil
	}
	return Resolved{TermID: termID, SynonymID: syn.ID, Synonym: term.Term}, true, nil
}

// lookup 在该语言下逐个试同义词，任一命中即返回其概念。
func (c *Catalog) lookup(lang string, synonyms []string) (uint, bool, error) {
	for _, text := range synonyms {
		syn, err := c.index.FindSynonym(lang, text)
		if err != nil {
			return 0, false, err
		}
		if syn != nil {
			return syn.MedicalTermID, true, nil
		}
	}
	return 0, false, nil
}

// create 请求语言服务释义并新建概念。
func (c *Catalog) create(ctx context.Context, term, lang string) (uint, error) {
	exp, err := c.svc.ExplainTerm(ctx, term, lang)
	if err != nil {
		return 0, err
	}
	termType := exp.Type
	switch termType {
	case models.TermCondition, models.TermPrescription, models.TermGeneral:
	default:
		termType = models.TermGeneral
	}
	return c.index.CreateConcept(store.CreateTerm{
		TermType:     termType,
		LanguageCode: lang,
		Name:         term,
		Description:  exp.Description,
		URL:          exp.URL,
		Synonyms:     []string{term},
	})
}

// growSynonyms 把新识别的同义词并入概念，只增不删。
func (c *Catalog) growSynonyms(termID uint, lang string, synonyms []string) error {
	existing, err := c.index.SynonymStrings(termID, lang)
	if err != nil {
		return err
	}
	known := make(map[string]struct{}, len(existing))
	for _, s := range existing {
		known[s] = struct{}{}
	}
	var missing []string
	for _, s := range synonyms {
		if _, ok := known[s]; !ok {
			missing = append(missing, s)
		}
	}
	if len(missing) == 0 {
		return nil
	}
	return c.index.AddSynonyms(termID, lang, missing)
}
