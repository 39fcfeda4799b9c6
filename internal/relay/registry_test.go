package relay

import (
	"testing"
	"time"
)

func TestRegistryJoinLeave(t *testing.T) {
	registry := NewRegistry()
	client1 := newTestClient("1")
	client2 := newTestClient("2")

	t.Run("JoinIsIdempotent", func(t *testing.T) {
		registry.Join("FEED_O_R_1", client1)
		registry.Join("FEED_O_R_1", client1)
		registry.Join("FEED_O_R_1", client1)

		if got := registry.MemberCount("FEED_O_R_1"); got != 1 {
			t.Errorf("expected 1 member after repeated joins, got %d", got)
		}
	})

	t.Run("LeaveUnjoinedIsNoop", func(t *testing.T) {
		registry.Leave("FEED_O_R_1", client2)
		registry.Leave("FEED_X_Y_9", client1)

		if got := registry.MemberCount("FEED_O_R_1"); got != 1 {
			t.Errorf("expected membership unchanged, got %d", got)
		}
	})

	t.Run("NetMembershipAfterSequence", func(t *testing.T) {
		registry.Join("FEED_O_R_2", client1)
		registry.Join("FEED_O_R_2", client2)
		registry.Leave("FEED_O_R_2", client1)
		registry.Join("FEED_O_R_2", client2)
		registry.Leave("FEED_O_R_2", client1)

		if got := registry.MemberCount("FEED_O_R_2"); got != 1 {
			t.Errorf("expected 1 net member, got %d", got)
		}
		for _, key := range client2.Channels() {
			if key == "FEED_O_R_2" {
				return
			}
		}
		t.Error("client2 should still track membership of FEED_O_R_2")
	})

	t.Run("ChannelRemovedWhenEmpty", func(t *testing.T) {
		registry.Join("FEED_O_R_3", client1)
		registry.Leave("FEED_O_R_3", client1)

		registry.mu.RLock()
		_, exists := registry.channels["FEED_O_R_3"]
		registry.mu.RUnlock()
		if exists {
			t.Error("empty channel should have been dropped")
		}
	})
}

func TestRegistryBroadcast(t *testing.T) {
	registry := NewRegistry()

	t.Run("EmptyChannelIsNoop", func(t *testing.T) {
		registry.Broadcast("FEED_O_R_1", []byte(`{"status":"running"}`))
	})

	t.Run("DeliversOnlyToMembers", func(t *testing.T) {
		member1 := newTestClient("1")
		member2 := newTestClient("2")
		outsider := newTestClient("3")

		registry.Join("FEED_A_B_1", member1)
		registry.Join("FEED_A_B_1", member2)
		registry.Join("FEED_A_B_2", outsider)

		payload := []byte(`{"status":"passed"}`)
		registry.Broadcast("FEED_A_B_1", payload)

		for _, member := range []*Client{member1, member2} {
			env, ok := recvEnvelope(t, member, time.Second)
			if !ok {
				t.Fatal("member did not receive broadcast")
			}
			if env.Type != "FEED_A_B_1" {
				t.Errorf("expected topic FEED_A_B_1, got %q", env.Type)
			}
			if string(env.Data) != string(payload) {
				t.Errorf("expected payload %s, got %s", payload, env.Data)
			}
		}

		if _, ok := recvEnvelope(t, outsider, 50*time.Millisecond); ok {
			t.Error("outsider on FEED_A_B_2 must not receive FEED_A_B_1 broadcasts")
		}
	})

	t.Run("ExactlyOncePerMember", func(t *testing.T) {
		member := newTestClient("1")
		registry.Join("FEED_C_D_7", member)
		registry.Broadcast("FEED_C_D_7", []byte(`{}`))

		if _, ok := recvEnvelope(t, member, time.Second); !ok {
			t.Fatal("member did not receive broadcast")
		}
		if _, ok := recvEnvelope(t, member, 50*time.Millisecond); ok {
			t.Error("member received duplicate delivery")
		}
	})
}

func TestRegistryLeaveAll(t *testing.T) {
	registry := NewRegistry()
	client := newTestClient("1")

	registry.Join("FEED_O_R_1", client)
	registry.Join("FEED_O_R_2", client)
	registry.Join("FEED_O_R_3", client)

	registry.LeaveAll(client)

	for _, key := range []string{"FEED_O_R_1", "FEED_O_R_2", "FEED_O_R_3"} {
		if got := registry.MemberCount(key); got != 0 {
			t.Errorf("expected %s empty after LeaveAll, got %d members", key, got)
		}
	}
	if got := len(client.Channels()); got != 0 {
		t.Errorf("expected no tracked channels after LeaveAll, got %d", got)
	}
}
