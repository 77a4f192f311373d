package terminal

import (
	"context"
	"fmt"
	"math"

	"github.com/gdamore/tcell/v2"

	"github.com/roach88/lockstep/internal/astro"
	"github.com/roach88/lockstep/internal/engine"
)

var (
	stylePlayer = tcell.StyleDefault.Foreground(tcell.ColorGreen).Bold(true)
	styleRock   = tcell.StyleDefault.Foreground(tcell.ColorGray)
	styleShot   = tcell.StyleDefault.Foreground(tcell.ColorYellow)
	styleStatus = tcell.StyleDefault.Foreground(tcell.ColorBlack).Background(tcell.ColorWhite)
)

// facingGlyphs maps the player's facing, in quarter turns from up.
var facingGlyphs = [4]rune{'^', '>', 'v', '<'}

// Presenter is an engine.Presenter drawing the arena on a tcell screen.
// The bottom row is a status line; the arena is scaled to the rest.
type Presenter struct {
	screen tcell.Screen
	input  *Input
}

var _ engine.Presenter[astro.ID, astro.Entity] = (*Presenter)(nil)

// NewPresenter draws on screen. When input is not nil its quit request
// closes the run.
func NewPresenter(screen tcell.Screen, input *Input) *Presenter {
	return &Presenter{screen: screen, input: input}
}

// NewScreen creates and initializes the terminal screen.
func NewScreen() (tcell.Screen, error) {
	screen, err := tcell.NewScreen()
	if err != nil {
		return nil, fmt.Errorf("new screen: %w", err)
	}
	if err := screen.Init(); err != nil {
		return nil, fmt.Errorf("init screen: %w", err)
	}
	screen.HideCursor()
	return screen, nil
}

// Present draws one frame. Actor positions are extrapolated by alpha
// ticks so motion stays smooth between ticks.
func (p *Presenter) Present(_ context.Context, frame engine.Frame, world astro.View) (bool, error) {
	p.screen.Clear()
	w, h := p.screen.Size()
	status := astro.Summarize(world)

	rows := h - 1
	if rows > 0 && w > 0 && status.Arena.X > 0 && status.Arena.Y > 0 {
		dt := 1 / float64(frame.Rate)
		for id, e := range world.All() {
			if id.Kind == astro.KindGame {
				continue
			}
			pos := astro.Interpolate(e.Actor, frame.Alpha, dt, status.Arena)
			x := int(pos.X / status.Arena.X * float64(w))
			y := int(pos.Y / status.Arena.Y * float64(rows))
			glyph, style := glyphFor(id, e.Actor)
			p.screen.SetContent(min(x, w-1), min(y, rows-1), glyph, nil, style)
		}
	}

	line := fmt.Sprintf(" tick %d  alpha %.2f  level %d  score %d  rocks %d ",
		frame.Tick, frame.Alpha, status.Level, status.Score, status.Rocks)
	if !status.Player {
		line += " respawning "
	}
	drawText(p.screen, 0, h-1, w, line, styleStatus)
	p.screen.Show()

	return p.input != nil && p.input.QuitRequested(), nil
}

func glyphFor(id astro.ID, a astro.Actor) (rune, tcell.Style) {
	switch id.Kind {
	case astro.KindPlayer:
		quarter := int(math.Round(a.Facing/(math.Pi/2))) % 4
		if quarter < 0 {
			quarter += 4
		}
		return facingGlyphs[quarter], stylePlayer
	case astro.KindRock:
		return 'O', styleRock
	default:
		return '*', styleShot
	}
}

func drawText(screen tcell.Screen, x, y, width int, text string, style tcell.Style) {
	if y < 0 {
		return
	}
	col := x
	for _, r := range text {
		if col >= width {
			return
		}
		screen.SetContent(col, y, r, nil, style)
		col++
	}
	for ; col < width; col++ {
		screen.SetContent(col, y, ' ', nil, style)
	}
}
