// Package assets 持有已加载的字体与徽标模型，并为布局引擎生成文字网格。
//
// 加载可以在任意 goroutine 中完成：解析在锁外进行，完成后在锁内替换并递增代数，
// 已生成的文字网格缓存随之失效。
package assets

import (
	"errors"
	"fmt"
	"sort"
	"sync"

	"github.com/tdewolff/canvas"

	"github.com/ByLCY/signboard/fonts"
	"github.com/ByLCY/signboard/geom"
)

// ErrNoFont 表示缓存中还没有任何字体。
var ErrNoFont = errors.New("assets: no font loaded")

// Cache 保存字体族与当前徽标。
type Cache struct {
	mu         sync.RWMutex
	families   map[string]*canvas.FontFamily
	defaultID  string
	emblem     *Emblem
	generation uint64
	tolerance  float64
	meshes     map[meshKey]*geom.Mesh
}

type meshKey struct {
	generation uint64
	font       string
	text       string
	size       float64
	depth      float64
}

// DefaultTolerance 是 NewCache 收到非正数时使用的曲线展开偏差。
const DefaultTolerance = 0.005

// NewCache 创建空缓存。tolerance 为曲线展开为折线时允许的最大偏差（世界单位）。
func NewCache(tolerance float64) *Cache {
	if !(tolerance > 0) {
		tolerance = DefaultTolerance
	}
	return &Cache{
		families:  map[string]*canvas.FontFamily{},
		tolerance: tolerance,
		meshes:    map[meshKey]*geom.Mesh{},
	}
}

// LoadFont 解析 TrueType/OpenType 数据并以 id 注册。第一个成功加载的字体成为默认字体。
func (c *Cache) LoadFont(id string, data []byte) error {
	if id == "" {
		return fmt.Errorf("assets: font id is empty")
	}
	family := canvas.NewFontFamily(id)
	if err := family.LoadFont(data, 0, canvas.FontRegular); err != nil {
		return fmt.Errorf("加载字体 %s 失败: %w", id, err)
	}
	c.mu.Lock()
	defer c.mu.Unlock()
	c.families[id] = family
	if c.defaultID == "" {
		c.defaultID = id
	}
	c.bump()
	return nil
}

// LoadBuiltinFont 以 id 注册内置字体 name（见 fonts.Names）。
func (c *Cache) LoadBuiltinFont(id, name string) error {
	data, err := fonts.Load(name)
	if err != nil {
		return err
	}
	return c.LoadFont(id, data)
}

// SetDefaultFont 指定未知字体 id 时使用的字体。
func (c *Cache) SetDefaultFont(id string) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	if _, ok := c.families[id]; !ok {
		return fmt.Errorf("字体 %s 尚未加载", id)
	}
	c.defaultID = id
	c.bump()
	return nil
}

// DefaultFont returns the id used for unknown font ids, or "" before any font is loaded.
func (c *Cache) DefaultFont() string {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.defaultID
}

// FontReady reports whether at least one font is loaded.
func (c *Cache) FontReady() bool {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.defaultID != ""
}

// HasFont reports whether id resolves to its own font rather than the default.
func (c *Cache) HasFont(id string) bool {
	c.mu.RLock()
	defer c.mu.RUnlock()
	_, ok := c.families[id]
	return ok
}

// FontIDs returns the registered font ids in sorted order.
func (c *Cache) FontIDs() []string {
	c.mu.RLock()
	defer c.mu.RUnlock()
	ids := make([]string, 0, len(c.families))
	for id := range c.families {
		ids = append(ids, id)
	}
	sort.Strings(ids)
	return ids
}

// SetEmblem 替换当前徽标；传入 nil 表示清除。
func (c *Cache) SetEmblem(e *Emblem) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.emblem = e
	c.generation++
}

// Emblem returns the most recently loaded emblem, or nil.
func (c *Cache) Emblem() *Emblem {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.emblem
}

// EmblemReady reports whether an emblem is loaded.
func (c *Cache) EmblemReady() bool {
	return c.Emblem() != nil
}

// Generation 在每次字体或徽标变化时递增。
func (c *Cache) Generation() uint64 {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.generation
}

// family 解析字体 id；未知 id 回退到默认字体。
func (c *Cache) family(id string) (*canvas.FontFamily, uint64, error) {
	c.mu.RLock()
	defer c.mu.RUnlock()
	if f, ok := c.families[id]; ok {
		return f, c.generation, nil
	}
	if f, ok := c.families[c.defaultID]; ok {
		return f, c.generation, nil
	}
	return nil, c.generation, ErrNoFont
}

func (c *Cache) cached(k meshKey) (*geom.Mesh, bool) {
	c.mu.RLock()
	defer c.mu.RUnlock()
	m, ok := c.meshes[k]
	return m, ok
}

func (c *Cache) store(k meshKey, m *geom.Mesh) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if k.generation == c.generation {
		c.meshes[k] = m
	}
}

// bump 需在持有写锁时调用。
func (c *Cache) bump() {
	c.generation++
	c.meshes = map[meshKey]*geom.Mesh{}
}
