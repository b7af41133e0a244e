package cli

import (
	"strings"

	"github.com/shaiso/Forge/internal/engine"
)

// TaskInfo — задача в выводе -T / -P.
type TaskInfo struct {
	Name        string   `json:"name"`
	Kind        string   `json:"kind"`
	Description string   `json:"description,omitempty"`
	Prereqs     []string `json:"prereqs,omitempty"`
}

func taskInfo(t *engine.Task) TaskInfo {
	return TaskInfo{
		Name:        t.FullName(),
		Kind:        t.Kind().String(),
		Description: t.Description(),
		Prereqs:     t.Prereqs(),
	}
}

func matches(name, filter string) bool {
	return filter == "" || strings.Contains(name, filter)
}

// PrintTasks выводит задачи с описаниями (-T). filter — подстрока имени.
func PrintTasks(out *Output, tasks []*engine.Task, filter string) {
	infos := make([]TaskInfo, 0, len(tasks))
	rows := make([][]string, 0, len(tasks))

	for _, t := range tasks {
		if t.Description() == "" || !matches(t.FullName(), filter) {
			continue
		}
		info := taskInfo(t)
		infos = append(infos, info)
		rows = append(rows, []string{info.Name, info.Kind, info.Description})
	}

	out.Print([]string{"TASK", "KIND", "DESCRIPTION"}, rows, infos)
}

// PrintPrereqs выводит задачи и их пререквизиты (-P) в топологическом
// порядке. При цикле выводится доступная часть и возвращается ошибка.
func PrintPrereqs(out *Output, e *engine.Engine, filter string) error {
	g, err := e.BuildGraph()

	infos := make([]TaskInfo, 0, len(g.Order))
	rows := make([][]string, 0, len(g.Order))

	for _, node := range g.Order {
		if node.Task == nil || !matches(node.ID, filter) {
			continue
		}
		info := taskInfo(node.Task)
		infos = append(infos, info)
		rows = append(rows, []string{info.Name, info.Kind, strings.Join(info.Prereqs, ", ")})
	}

	out.Print([]string{"TASK", "KIND", "PREREQUISITES"}, rows, infos)
	return err
}
