package main

import (
	"bufio"
	"fmt"
	"io"
	"strconv"
	"strings"

	"questionpooler"
)

// Game runs rounds in which each player in turn picks a category, is offered
// a handful of questions and chooses one to ask
type Game struct {
	Pool      *questionpooler.PoolManager
	Questions int
	In        io.Reader
	Out       io.Writer
	Log       *questionpooler.SessionLog
}

// Play runs until every pool is exhausted, input ends, or a player quits
func (g *Game) Play() error {
	scanner := bufio.NewScanner(g.In)
	players := g.Pool.Players()

	fmt.Fprintf(g.Out, "🎯 Starting a question round for %d players\n", players)
	fmt.Fprintf(g.Out, "📝 %d questions offered per turn, type q to quit\n\n", g.Questions)

	asked := make([]int, players)
	for round := 1; ; round++ {
		active := false
		for player := 0; player < players; player++ {
			left, err := g.remaining(player)
			if err != nil {
				return err
			}
			if left == 0 {
				continue
			}
			active = true

			fmt.Fprintf(g.Out, "Round %d, Player %d\n", round, player+1)
			done, err := g.turn(scanner, player)
			if err != nil {
				return err
			}
			if done {
				g.summary(asked)
				return nil
			}
			asked[player]++
			fmt.Fprintln(g.Out)
			fmt.Fprintln(g.Out, strings.Repeat("─", 50))
			fmt.Fprintln(g.Out)
		}
		if !active {
			fmt.Fprintln(g.Out, "🎉 Every question has been asked!")
			g.summary(asked)
			return nil
		}
	}
}

func (g *Game) remaining(player int) (int, error) {
	total := 0
	for _, category := range questionpooler.Categories {
		n, err := g.Pool.Remaining(player, category)
		if err != nil {
			return 0, err
		}
		total += n
	}
	return total, nil
}

// turn returns true when the player quits or input runs out
func (g *Game) turn(scanner *bufio.Scanner, player int) (bool, error) {
	var category questionpooler.Category
	for {
		fmt.Fprint(g.Out, "Category, (a)ppearance or (i)nterests: ")
		if !scanner.Scan() {
			return true, scanner.Err()
		}
		answer := strings.ToLower(strings.TrimSpace(scanner.Text()))
		switch answer {
		case "q":
			return true, nil
		case "a", "appearance":
			category = questionpooler.CategoryAppearance
		case "i", "interests":
			category = questionpooler.CategoryInterests
		default:
			fmt.Fprintln(g.Out, "Please enter a, i or q")
			continue
		}

		left, err := g.Pool.Remaining(player, category)
		if err != nil {
			return false, err
		}
		if left == 0 {
			fmt.Fprintf(g.Out, "No %s questions left, pick the other category\n", category)
			continue
		}
		break
	}

	questions, err := g.Pool.GetNewQuestions(player, category, g.Questions)
	if err != nil {
		if g.Log != nil {
			g.Log.LogError(player, "get new questions", err)
		}
		return false, err
	}
	if g.Log != nil {
		g.Log.LogDraw(player, category, questions)
	}

	for i, q := range questions {
		fmt.Fprintf(g.Out, "%d) %s\n", i+1, q.Text)
		switch {
		case len(q.Options) > 0:
			fmt.Fprintf(g.Out, "   options: %s\n", strings.Join(nonEmpty(q.Options), ", "))
		case q.Kind == questionpooler.OptionsFreeFill:
			fmt.Fprintln(g.Out, "   (fill in your own answer)")
		}
	}

	for {
		fmt.Fprintf(g.Out, "Pick a question (1-%d): ", len(questions))
		if !scanner.Scan() {
			return true, scanner.Err()
		}
		answer := strings.TrimSpace(scanner.Text())
		if strings.EqualFold(answer, "q") {
			return true, nil
		}

		choice, err := strconv.Atoi(answer)
		if err != nil || choice < 1 || choice > len(questions) {
			fmt.Fprintf(g.Out, "Please enter a number from 1 to %d\n", len(questions))
			continue
		}

		picked := questions[choice-1]
		if _, err := g.Pool.UseQuestion(picked, player); err != nil {
			return false, err
		}
		if g.Log != nil {
			g.Log.LogUse(player, picked.Text)
		}
		fmt.Fprintf(g.Out, "✅ Player %d asks: %s\n", player+1, picked.Text)
		return false, nil
	}
}

func (g *Game) summary(asked []int) {
	fmt.Fprintln(g.Out, "\n📊 Questions asked:")
	for player, n := range asked {
		fmt.Fprintf(g.Out, "  Player %d: %d\n", player+1, n)
	}
}

func printSet(out io.Writer, set *questionpooler.QuestionSet, categories []questionpooler.Category) {
	for _, category := range categories {
		fmt.Fprintf(out, "%s:\n", category)
		for _, q := range set.List(category) {
			marker := " "
			if q.Used {
				marker = "x"
			}
			fmt.Fprintf(out, "  [%s] %s (%s)\n", marker, q.Text, q.Kind)
			if len(q.Options) > 0 {
				fmt.Fprintf(out, "      %s\n", strings.Join(nonEmpty(q.Options), ", "))
			}
		}
	}
}

func nonEmpty(lines []string) []string {
	out := make([]string, 0, len(lines))
	for _, line := range lines {
		if line != "" {
			out = append(out, line)
		}
	}
	return out
}
