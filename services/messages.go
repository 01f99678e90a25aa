package services

import (
	"fmt"
	"strings"

	"eatwhat-bot/models"
)

// Reply texts. They carry no quoting marker; transports add that.

func ToggleDeniedMessage(plugin string) string {
	return fmt.Sprintf("❌❌❌你没有权限对%s功能进行操作,请联系管理员。", plugin)
}

func ToggleMessage(plugin string, enabled bool) string {
	if enabled {
		return fmt.Sprintf("✅✅✅%s功能已开启", plugin)
	}
	return fmt.Sprintf("🚫🚫🚫%s功能已关闭", plugin)
}

func AddedMessage(t models.ItemType, restaurant, item string) string {
	return fmt.Sprintf("✅已添加%s：%s %s", t.Label(), restaurant, item)
}

func DuplicateMessage(t models.ItemType) string {
	return fmt.Sprintf("⚠️该%s已存在", t.Label())
}

func EmptyMenuMessage() string {
	return "还没有添加任何菜品或饮品呢"
}

// PickMessage names the suggestion and shows how to add or delete around it.
func PickMessage(t models.ItemType, restaurant, item string) string {
	label := t.Label()
	var b strings.Builder
	fmt.Fprintf(&b, "%s %s", restaurant, item)
	fmt.Fprintf(&b, "\n\n💡 添加%s命令：添加%s 店名 %s名", label, label, label)
	fmt.Fprintf(&b, "\n例如：添加%s %s 新%s", label, restaurant, label)
	fmt.Fprintf(&b, "\n\n💡 删除%s命令：删除%s 店名 %s名", label, label, label)
	fmt.Fprintf(&b, "\n例如：删除%s %s %s", label, restaurant, item)
	return b.String()
}

func NoItemsMessage(t models.ItemType) string {
	label := t.Label()
	return fmt.Sprintf("还没有添加任何%s呢\n\n💡 添加%s命令：添加%s 店名 %s名\n💡 删除%s命令：删除%s 店名 %s名",
		label, label, label, label, label, label, label)
}

func DeleteDeniedMessage() string {
	return "❌你没有权限删除菜品/饮品"
}

func RemovedMessage(t models.ItemType, restaurant, item string) string {
	return fmt.Sprintf("✅已删除%s：%s %s", t.Label(), restaurant, item)
}

func RestaurantNotFoundMessage(restaurant string) string {
	return fmt.Sprintf("⚠️未找到该店铺：%s", restaurant)
}

func ItemNotFoundMessage(t models.ItemType, restaurant, item string) string {
	return fmt.Sprintf("⚠️未找到该%s：%s %s", t.Label(), restaurant, item)
}

// HelpMessage lists the command grammar.
func HelpMessage(toggleKeyword string) string {
	return strings.Join([]string{
		"🍚 吃什么 使用说明",
		"[店名]吃什么 / [店名]喝什么：随机推荐，店名可省略，支持模糊匹配",
		"添加菜品 店名 菜品名",
		"添加饮品 店名 饮品名",
		"删除菜品 店名 菜品名（管理员）",
		"删除饮品 店名 饮品名（管理员）",
		toggleKeyword + "：开启/关闭本功能（管理员）",
	}, "\n")
}

// FailureMessage reports an unexpected error back to the chat it came from.
func FailureMessage(plugin, kind string, err error) string {
	return fmt.Sprintf("处理%s%s事件失败，错误信息：%v", plugin, kindLabel(kind), err)
}

func kindLabel(kind string) string {
	switch kind {
	case models.PostTypeMessage:
		return "消息"
	case models.PostTypeNotice:
		return "通知"
	case models.PostTypeRequest:
		return "请求"
	case models.PostTypeMetaEvent:
		return "元事件"
	case models.PostTypeResponse:
		return "回调"
	}
	return "未知"
}
