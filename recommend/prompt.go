package recommend

import (
	"fmt"
	"strings"

	"github.com/teamflow/rolecall/types"
)

// teamAssignmentInstruction tells the model to produce the whole-team
// assignment as a bare JSON array so the parser has a fighting chance.
const teamAssignmentInstruction = `You are a team project role assignment AI. ` +
	`Given a list of roles and the members' profiles, assign exactly one role to every member. ` +
	`Each role may be used at most once and must be chosen from the provided role list. ` +
	`Respond with ONLY a JSON array in this exact shape, no prose: ` +
	`[{"username": "<member name>", "assigned_role": "<role name>"}]`

// singleRoleInstruction requests one role suggestion with a short reason.
const singleRoleInstruction = `You are a team project role recommendation AI. ` +
	`From the provided role list, pick the single best-fitting role for the member and explain why in one short sentence. ` +
	`Respond with ONLY a JSON object in this exact shape: ` +
	`{"recommendedRole": "<role name>", "reason": "<short reason>"}`

// buildTeamPrompt renders the role slots and member profiles for the
// whole-team assignment call.
func buildTeamPrompt(roleSlots []string, profiles []types.Profile) string {
	var b strings.Builder

	fmt.Fprintf(&b, "Available roles: %s\n\n", strings.Join(roleSlots, ", "))
	b.WriteString("Members:\n")

	for _, p := range profiles {
		fmt.Fprintf(&b, "- name: %s, major: %s, traits: %s, preferred work: %s\n",
			p.Name, p.Major, joinOrNone(p.Traits), joinOrNone(p.Preferences))
	}

	b.WriteString("\nAssign one role to each member.")

	return b.String()
}

// buildSinglePrompt renders one member's profile for a single-role
// recommendation call.
func buildSinglePrompt(profile types.Profile, roleSlots []string) string {
	return fmt.Sprintf(
		"Major: %s\nTraits: %s\nPreferred work: %s\n\nAvailable roles: %s\nWhich role fits this member best?",
		profile.Major, joinOrNone(profile.Traits), joinOrNone(profile.Preferences),
		strings.Join(roleSlots, ", "),
	)
}

func joinOrNone(values []string) string {
	if len(values) == 0 {
		return "none"
	}

	return strings.Join(values, ", ")
}
