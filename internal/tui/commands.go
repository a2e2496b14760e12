package tui

import (
	"context"

	tea "github.com/charmbracelet/bubbletea"
)

func (m *model) checkSessionCmd() tea.Cmd {
	m.checkSeq++
	seq := m.checkSeq
	store := m.config.Session
	return m.jobs.Start(jobKindSession, func(ctx context.Context) (tea.Msg, error) {
		return sessionCheckedMsg{Seq: seq, State: store.Check(ctx)}, nil
	})
}

func (m *model) loginCmd() tea.Cmd {
	m.checkSeq++
	seq := m.checkSeq
	store := m.config.Session
	return m.jobs.Start(jobKindSession, func(ctx context.Context) (tea.Msg, error) {
		if err := store.Login(ctx); err != nil {
			return nil, err
		}
		return sessionCheckedMsg{Seq: seq, State: store.Check(ctx)}, nil
	})
}

func (m *model) logoutCmd() tea.Cmd {
	store := m.config.Session
	return m.jobs.Start(jobKindLogout, func(ctx context.Context) (tea.Msg, error) {
		if err := store.Logout(ctx); err != nil {
			return nil, err
		}
		return logoutDoneMsg{}, nil
	})
}

func (m *model) resolveCmd() tea.Cmd {
	resolver := m.config.Verses
	return m.jobs.Start(jobKindVerse, func(ctx context.Context) (tea.Msg, error) {
		res, err := resolver.Resolve(ctx)
		if err != nil {
			return nil, err
		}
		return verseResolvedMsg{Resolution: res}, nil
	})
}

func (m *model) askCmd(question string) tea.Cmd {
	conversation := m.config.Chat
	return m.jobs.Start(jobKindAsk, func(ctx context.Context) (tea.Msg, error) {
		msg, err := conversation.Ask(ctx, question)
		return chatAnsweredMsg{Message: msg}, err
	})
}

func (m *model) resetChatCmd() tea.Cmd {
	conversation := m.config.Chat
	return m.jobs.Start(jobKindReset, func(ctx context.Context) (tea.Msg, error) {
		msg, err := conversation.Reset(ctx)
		return chatResetMsg{Message: msg}, err
	})
}

func (m *model) refreshPlansCmd() tea.Cmd {
	registry := m.config.Plans
	return m.jobs.Start(jobKindPlans, func(ctx context.Context) (tea.Msg, error) {
		list, err := registry.Refresh(ctx)
		if err != nil {
			return nil, err
		}
		return plansLoadedMsg{Plans: list}, nil
	})
}

func (m *model) createPlanCmd(topic string, days int) tea.Cmd {
	registry := m.config.Plans
	return m.jobs.Start(jobKindPlanOp, func(ctx context.Context) (tea.Msg, error) {
		plan, err := registry.Create(ctx, topic, days)
		if err != nil {
			return nil, err
		}
		return planMutatedMsg{Action: planActionCreate, PlanID: plan.ID, Topic: plan.Topic}, nil
	})
}

func (m *model) activatePlanCmd(id, topic string) tea.Cmd {
	registry := m.config.Plans
	return m.jobs.Start(jobKindPlanOp, func(ctx context.Context) (tea.Msg, error) {
		if err := registry.Activate(ctx, id); err != nil {
			return nil, err
		}
		return planMutatedMsg{Action: planActionActivate, PlanID: id, Topic: topic}, nil
	})
}

func (m *model) deletePlanCmd(id, topic string) tea.Cmd {
	registry := m.config.Plans
	return m.jobs.Start(jobKindPlanOp, func(ctx context.Context) (tea.Msg, error) {
		if err := registry.Delete(ctx, id); err != nil {
			return planMutatedMsg{Action: planActionDelete, PlanID: id, Topic: topic}, err
		}
		return planMutatedMsg{Action: planActionDelete, PlanID: id, Topic: topic}, nil
	})
}
