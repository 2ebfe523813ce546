package engine

// Player 0 starts on the left quarter heading right, player 1 mirrors it.
func DefaultSpawns(g Grid, length int) ([Players]*Snake, error) {
	mid := g.Height() / 2
	quarter := g.Width() / 4
	snakes := [Players]*Snake{
		NewSnake(Cell{X: quarter, Y: mid}, DirRight, length),
		NewSnake(Cell{X: g.Width() - 1 - quarter, Y: mid}, DirLeft, length),
	}
	for _, sn := range snakes {
		for _, c := range sn.Body {
			if g.Blocked(c) {
				return snakes, ErrInvalidSpawn
			}
		}
	}
	return snakes, nil
}

var Palette = []string{
	"#4C3BE3",
	"#DAADFF",
	"#F68303",
	"#F74980",
	"#9AF496",
	"#91679D",
	"#E11C2F",
	"#979913",
}
