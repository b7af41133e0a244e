package engine

import (
	"sort"
	"strings"
)

// Separator — разделитель сегментов в полных именах задач и namespace.
const Separator = ":"

// Namespace — именованная область видимости задач и правил.
//
// Родитель владеет дочерними namespace; ссылка на родителя — обратная.
// Корневой namespace единственный и не имеет имени.
type Namespace struct {
	name     string
	parent   *Namespace
	children map[string]*Namespace
	tasks    map[string]*Task

	// rules хранятся в порядке регистрации: при неоднозначном
	// совпадении выигрывает последнее правило.
	rules     map[string]*Rule
	ruleOrder []string
}

func newNamespace(name string, parent *Namespace) *Namespace {
	return &Namespace{
		name:     name,
		parent:   parent,
		children: make(map[string]*Namespace),
		tasks:    make(map[string]*Task),
		rules:    make(map[string]*Rule),
	}
}

// Name возвращает собственное имя namespace ("" для корня).
func (ns *Namespace) Name() string { return ns.name }

// Parent возвращает родительский namespace (nil для корня).
func (ns *Namespace) Parent() *Namespace { return ns.parent }

// IsRoot сообщает, является ли namespace корневым.
func (ns *Namespace) IsRoot() bool { return ns.parent == nil }

// Path возвращает имена предков через ":" без корня.
func (ns *Namespace) Path() string {
	if ns.parent == nil {
		return ""
	}
	return ns.parent.FullName()
}

// FullName возвращает Path + собственное имя.
func (ns *Namespace) FullName() string {
	path := ns.Path()
	if path == "" {
		return ns.name
	}
	return path + Separator + ns.name
}

// qualify возвращает полное имя для локального имени задачи.
func (ns *Namespace) qualify(name string) string {
	full := ns.FullName()
	if full == "" {
		return name
	}
	return full + Separator + name
}

// Child возвращает дочерний namespace по имени.
func (ns *Namespace) Child(name string) *Namespace {
	return ns.children[name]
}

// Children возвращает дочерние namespace, отсортированные по имени.
func (ns *Namespace) Children() []*Namespace {
	out := make([]*Namespace, 0, len(ns.children))
	for _, c := range ns.children {
		out = append(out, c)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].name < out[j].name })
	return out
}

// ResolveNamespace находит namespace по относительному имени.
//
// Пустое имя — сам namespace. Иначе путь проходится по дочерним
// namespace; если сегмент не найден, поиск повторяется от родителя
// (ближайшая объемлющая область). nil, если ни один предок не подошёл.
func (ns *Namespace) ResolveNamespace(relativeName string) *Namespace {
	if relativeName == "" {
		return ns
	}

	cur := ns
	for _, part := range strings.Split(relativeName, Separator) {
		cur = cur.children[part]
		if cur == nil {
			break
		}
	}
	if cur != nil {
		return cur
	}

	if ns.parent != nil {
		return ns.parent.ResolveNamespace(relativeName)
	}
	return nil
}

// MatchRule ищет правило для относительного имени задачи.
//
// Сегмент имени задачи отбрасывается, namespace разрешается по
// оставшемуся пути. Среди правил найденного namespace выбирается
// последнее совпавшее в порядке регистрации; если совпадений нет,
// поиск продолжается в родителе.
func (ns *Namespace) MatchRule(relativeName string) *Rule {
	nsPath, base := splitName(relativeName)

	if target := ns.ResolveNamespace(nsPath); target != nil {
		var match *Rule
		for _, key := range target.ruleOrder {
			if r := target.rules[key]; r.Match(base) {
				match = r
			}
		}
		if match != nil {
			return match
		}
	}

	if ns.parent != nil {
		return ns.parent.MatchRule(relativeName)
	}
	return nil
}

// Rules возвращает правила namespace в порядке регистрации.
func (ns *Namespace) Rules() []*Rule {
	out := make([]*Rule, 0, len(ns.ruleOrder))
	for _, key := range ns.ruleOrder {
		out = append(out, ns.rules[key])
	}
	return out
}

// addRule регистрирует правило. Повторная регистрация того же шаблона
// заменяет правило, сохраняя его позицию.
func (ns *Namespace) addRule(r *Rule) {
	key := r.pattern.key()
	if _, exists := ns.rules[key]; !exists {
		ns.ruleOrder = append(ns.ruleOrder, key)
	}
	ns.rules[key] = r
}

// splitName делит "a:b:task" на путь namespace "a:b" и имя "task".
func splitName(name string) (nsPath, base string) {
	i := strings.LastIndex(name, Separator)
	if i < 0 {
		return "", name
	}
	return name[:i], name[i+1:]
}
