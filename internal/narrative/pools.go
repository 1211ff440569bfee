package narrative

// Category selects a phrase pool.
type Category int

const (
	AttackHit Category = iota
	AttackMiss
	DefenseSuccess
	DefenseFail
	MonsterDefeated
	PlayerDowned
)

var categoryNames = [...]string{
	AttackHit:       "attackHit",
	AttackMiss:      "attackMiss",
	DefenseSuccess:  "defenseSuccess",
	DefenseFail:     "defenseFail",
	MonsterDefeated: "monsterDefeated",
	PlayerDowned:    "playerDowned",
}

// Categories lists every category in declaration order.
var Categories = []Category{AttackHit, AttackMiss, DefenseSuccess, DefenseFail, MonsterDefeated, PlayerDowned}

func (c Category) String() string {
	if c < 0 || int(c) >= len(categoryNames) {
		return "unknown"
	}
	return categoryNames[c]
}

// ForOutcome maps a phase outcome onto its category.
func ForOutcome(attack, success bool) Category {
	switch {
	case attack && success:
		return AttackHit
	case attack:
		return AttackMiss
	case success:
		return DefenseSuccess
	default:
		return DefenseFail
	}
}

// Placeholders substituted by Generator.Phrase: {actor}, {target}, {damage}.
func defaultPools() map[Category][]string {
	return map[Category][]string{
		MonsterDefeated: {
			"{target} collapses. Out of the fight.",
			"{target} is down. Threat eliminated.",
			"Defeated. {target} is no longer a factor.",
			"{target} falls. Combat continues.",
			"{target} can't go on. Taken out.",
			"The last blow lands. {target} is defeated.",
			"{target} drops. One less to worry about.",
		},
		PlayerDowned: {
			"{target} is down. Out of the fight.",
			"{target} hits the ground. Incapacitated.",
			"Downed. {target} can no longer act.",
			"{target} falls. Someone needs to step up.",
			"{target} is out. The party is short a member.",
			"A heavy blow lands. {target} is incapacitated.",
			"{target} can't continue. They're down.",
		},
		AttackHit: {
			"{actor} connects. {target} takes {damage}.",
			"{actor} lands the blow on {target}. {damage} damage.",
			"Strike confirmed. {target} is hit for {damage}.",
			"{actor} breaks through. {target} suffers {damage}.",
			"{actor} finds the mark. {damage} to {target}.",
			"Clean hit. {target} takes {damage} from {actor}.",
			"{actor} drives through {target}'s guard. {damage} damage dealt.",
		},
		AttackMiss: {
			"{actor} swings wide. {target} holds.",
			"No effect. {actor} fails to connect with {target}.",
			"{target} turns aside {actor}'s attack.",
			"{actor} misses. {target} remains unscathed.",
			"Attack falls short. {target} stands firm.",
			"{actor}'s strike goes wide of {target}.",
			"Glancing blow. {target} shrugs it off.",
		},
		DefenseSuccess: {
			"{target} weathers the assault from {actor}.",
			"{target} holds position. {actor}'s attack fails.",
			"Defended. {actor} cannot break {target}.",
			"{target} braces and survives {actor}'s strike.",
			"{actor} presses, but {target} doesn't yield.",
			"{target} reads {actor}'s move and deflects.",
			"No damage. {target} withstands {actor}.",
		},
		DefenseFail: {
			"{actor} punishes {target}. {damage} damage.",
			"{target} fails to block. {actor} deals {damage}.",
			"Exposed. {target} takes {damage} from {actor}.",
			"{actor} capitalises on the opening. {damage} to {target}.",
			"{target} takes {damage}. Defense broken by {actor}.",
			"{actor} gets through. {damage} damage to {target}.",
			"{target} couldn't hold. {damage} damage dealt by {actor}.",
		},
	}
}
