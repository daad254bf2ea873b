package logic

import (
	"maps"

	"github.com/postleo/riftinsights/internal/models"
)

var roleByPosition = map[string]models.Role{
	"TOP":     models.RoleTop,
	"JUNGLE":  models.RoleJungle,
	"MIDDLE":  models.RoleMid,
	"BOTTOM":  models.RoleADC,
	"UTILITY": models.RoleSupport,
}

// ResolveRole maps a Riot teamPosition to a role.
func ResolveRole(position string) models.Role {
	if role, ok := roleByPosition[position]; ok {
		return role
	}
	return models.RoleUnknown
}

// IsComebackGame approximates a comeback as a long win. It does not look at
// timeline gold and will both miss short comebacks and flag long stomps.
func IsComebackGame(win bool, durationSeconds int) bool {
	return win && durationSeconds > lateGameSeconds
}

// ObjectiveParticipation is the share of the team's epic monster kills
// (baron, dragon, rift herald) credited to the player. A nil team yields 0.
func ObjectiveParticipation(p *models.Participant, team *models.MatchTeam) float64 {
	if team == nil {
		return 0
	}
	player := p.Challenge("baronKills") + p.Challenge("dragonKills") + p.Challenge("riftHeraldKills")
	teamTotal := team.Objectives.Baron.Kills + team.Objectives.Dragon.Kills + team.Objectives.RiftHerald.Kills
	return ratio(player, float64(teamTotal))
}

// ExtractFeatures derives the per-match feature record for puuid.
// A nil match is reported as the player not being in it.
func ExtractFeatures(match *models.RawMatch, puuid string) (*models.MatchFeatures, error) {
	if match == nil {
		return nil, &PlayerNotInMatchError{PUUID: puuid}
	}
	info := &match.Info

	var p *models.Participant
	for i := range info.Participants {
		if info.Participants[i].PUUID == puuid {
			p = &info.Participants[i]
			break
		}
	}
	if p == nil {
		return nil, &PlayerNotInMatchError{MatchID: match.Metadata.MatchID, PUUID: puuid}
	}

	var team *models.MatchTeam
	for i := range info.Teams {
		if info.Teams[i].TeamID == p.TeamID {
			team = &info.Teams[i]
			break
		}
	}

	duration := info.GameDuration
	totalCS := p.TotalMinionsKilled + p.NeutralMinionsKilled

	return &models.MatchFeatures{
		PlayerPUUID:  puuid,
		MatchID:      match.Metadata.MatchID,
		GameCreation: info.GameCreation,
		GameDuration: duration,
		GameMode:     info.GameMode,
		GameType:     info.GameType,

		ChampionName: p.ChampionName,
		ChampionID:   p.ChampionID,
		Role:         ResolveRole(p.TeamPosition),
		TeamPosition: p.TeamPosition,

		Win:     p.Win,
		Kills:   p.Kills,
		Deaths:  p.Deaths,
		Assists: p.Assists,
		KDA:     KDA(p.Kills, p.Deaths, p.Assists),

		TotalMinionsKilled:   p.TotalMinionsKilled,
		NeutralMinionsKilled: p.NeutralMinionsKilled,
		TotalCS:              totalCS,
		CSPerMin:             PerMinute(totalCS, duration),

		GoldEarned: p.GoldEarned,
		GoldSpent:  p.GoldSpent,
		GoldPerMin: PerMinute(p.GoldEarned, duration),

		TotalDamageDealt: p.TotalDamageDealtToChampions,
		TotalDamageTaken: p.TotalDamageTaken,
		DamageEfficiency: DamageEfficiency(p.TotalDamageDealtToChampions, p.TotalDamageTaken),

		VisionScore:        p.VisionScore,
		VisionScorePerMin:  PerMinute(p.VisionScore, duration),
		WardsPlaced:        p.WardsPlaced,
		WardsKilled:        p.WardsKilled,
		ControlWardsPlaced: p.DetectorWardsPlaced,

		TurretKills:            p.TurretKills,
		InhibitorKills:         p.InhibitorKills,
		ObjectiveParticipation: ObjectiveParticipation(p, team),

		DoubleKills: p.DoubleKills,
		TripleKills: p.TripleKills,
		QuadraKills: p.QuadraKills,
		PentaKills:  p.PentaKills,
		FirstBlood:  p.FirstBloodKill,

		Challenges: maps.Clone(p.Challenges),

		IsComebackGame: IsComebackGame(p.Win, duration),
		EarlySurrender: duration < earlySurrenderSeconds,
		LateGame:       duration > lateGameSeconds,
	}, nil
}
