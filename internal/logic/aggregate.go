package logic

import (
	"time"

	"github.com/postleo/riftinsights/internal/models"
)

// firstSeenCounter counts keys and remembers the order in which they first appeared,
// so the most frequent key is chosen deterministically.
type firstSeenCounter[K comparable] struct {
	counts map[K]int
	order  []K
}

func newFirstSeenCounter[K comparable]() *firstSeenCounter[K] {
	return &firstSeenCounter[K]{counts: make(map[K]int)}
}

func (c *firstSeenCounter[K]) add(k K) {
	if _, ok := c.counts[k]; !ok {
		c.order = append(c.order, k)
	}
	c.counts[k]++
}

// top returns the key with the highest count; ties go to the earliest seen key.
func (c *firstSeenCounter[K]) top() K {
	var best K
	bestCount := 0
	for _, k := range c.order {
		if c.counts[k] > bestCount {
			best, bestCount = k, c.counts[k]
		}
	}
	return best
}

// AggregateSeason reduces an ordered season of feature records into SeasonMetrics.
// Primary role and most played champion depend on input order for ties, so callers
// that extract in parallel must restore chronological order first.
func AggregateSeason(records []models.MatchFeatures, year int) (*models.SeasonMetrics, error) {
	if len(records) == 0 {
		return nil, ErrEmptyDataset
	}

	m := &models.SeasonMetrics{
		Year:       year,
		TotalGames: len(records),
	}

	roles := newFirstSeenCounter[models.Role]()
	champions := newFirstSeenCounter[string]()

	var sumCS, sumGold, sumVision, sumDamageEff, sumObjective float64

	for i := range records {
		r := &records[i]

		if r.Win {
			m.Wins++
		}
		roles.add(r.Role)
		champions.add(r.ChampionName)

		m.TotalKills += r.Kills
		m.TotalDeaths += r.Deaths
		m.TotalAssists += r.Assists

		sumCS += r.CSPerMin
		sumGold += r.GoldPerMin
		sumVision += r.VisionScorePerMin
		sumDamageEff += r.DamageEfficiency
		sumObjective += r.ObjectiveParticipation

		if r.IsComebackGame && r.Win {
			m.ComebackWins++
		}
		if r.LateGame {
			if r.Win {
				m.LateGameWins++
			} else {
				m.LateGameLosses++
			}
		}

		m.TotalDoubleKills += r.DoubleKills
		m.TotalTripleKills += r.TripleKills
		m.TotalQuadraKills += r.QuadraKills
		m.TotalPentaKills += r.PentaKills
	}

	n := float64(m.TotalGames)

	m.Losses = m.TotalGames - m.Wins
	m.WinRate = Round2(float64(m.Wins) / n * 100)

	m.PrimaryRole = roles.top()
	m.RoleDistribution = roles.counts

	m.KillsPerGame = Round2(float64(m.TotalKills) / n)
	m.DeathsPerGame = Round2(float64(m.TotalDeaths) / n)
	m.AssistsPerGame = Round2(float64(m.TotalAssists) / n)
	m.KDA = KDA(m.TotalKills, m.TotalDeaths, m.TotalAssists)

	m.AvgCSPerMin = Round2(sumCS / n)
	m.AvgGoldPerMin = Round2(sumGold / n)
	m.AvgVisionScorePerMin = Round2(sumVision / n)
	m.AvgDamageEfficiency = Round2(sumDamageEff / n)
	m.AvgObjectiveParticipation = Round2(sumObjective / n)

	m.UniqueChampions = len(champions.order)
	m.MostPlayedChampion = champions.top()

	m.ProcessedAt = time.Now().UTC()

	return m, nil
}
